package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/bjaus/rest"
	"github.com/bjaus/rest/internal/petstore"
)

// envPrefix prefixes every API setting read from the environment.
const envPrefix = "PETSTORE_"

// CLI is the command line interface of the pet store.
type CLI struct {
	Serve   Serve   `kong:"cmd,help='Start the HTTP server.'"`
	OpenAPI OpenAPI `kong:"cmd,name='openapi',help='Output the OpenAPI document.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the logging level."`
	} `embed:"" prefix:"log-"`
	EnvFile []string `kong:"name='env-file',type='existingfile',help='Load environment variables from these files.'"`
}

// appContext is shared by every command.
type appContext struct {
	stdout   io.Writer
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

// AfterApply loads the environment files and applies the log level before
// any command runs.
func (c *CLI) AfterApply(app *appContext) error {
	if len(c.EnvFile) > 0 {
		if err := godotenv.Load(c.EnvFile...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
	}
	app.logLevel.Set(c.Log.Level)
	return nil
}

// Serve runs the API until interrupted.
type Serve struct {
	Addr string `kong:"default=':8080',help='Address to listen on.'"`
}

// Run the serve command.
func (c *Serve) Run(app *appContext) error {
	a, err := newAPI(app.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app.logger.Info("starting server", "addr", c.Addr)
	if err := a.ListenAndServe(ctx, c.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	app.logger.Info("server stopped")
	return nil
}

// OpenAPI outputs the generated document.
type OpenAPI struct {
	Print struct {
		YAML bool `kong:"name='yaml',help='Output YAML instead of JSON.'"`
	} `kong:"cmd,help='Print the document to stdout.'"`
	Write struct {
		File string `kong:"arg,help='Destination file.'"`
		YAML bool   `kong:"name='yaml',help='Output YAML instead of JSON.'"`
	} `kong:"cmd,help='Write the document to a file.'"`
}

// Run the openapi command.
func (c *OpenAPI) Run(kctx *kong.Context, app *appContext) error {
	a, err := newAPI(app.logger)
	if err != nil {
		return err
	}

	switch kctx.Command() {
	case "openapi print":
		return writeSpec(a, app.stdout, c.Print.YAML)
	case "openapi write <file>":
		f, err := os.Create(c.Write.File)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.Write.File, err)
		}
		if err := writeSpec(a, f, c.Write.YAML); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unknown command %q", kctx.Command())
	}
}

func writeSpec(a *rest.API, w io.Writer, asYAML bool) error {
	if asYAML {
		return a.WriteSpecYAML(w)
	}
	return a.WriteSpec(w)
}

// newAPI builds the pet store from the environment configuration.
func newAPI(logger *slog.Logger) (*rest.API, error) {
	cfg, err := rest.LoadConfig(envPrefix)
	if err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return petstore.New(cfg, petstore.NewStore(), logger)
}

// applyDefaults fills the settings the pet store needs when the
// environment leaves them empty.
func applyDefaults(cfg *rest.Config) {
	if cfg.Title == "" {
		cfg.Title = "Pet Store"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/docs"
		cfg.YAMLPath = "openapi.yaml"
		cfg.RedocPath = "redoc"
		cfg.SwaggerUIPath = "swagger-ui"
		cfg.RapiDocPath = "rapidoc"
	}
}
