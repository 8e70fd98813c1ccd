// Command petstore serves the sample pet store API and prints its OpenAPI
// document.
//
//	petstore serve --addr :8080
//	petstore openapi print --yaml
//	petstore openapi write openapi.json
//
// API settings come from PETSTORE_ prefixed variables, such as
// PETSTORE_API_TITLE or PETSTORE_OPENAPI_VERSION, optionally loaded from
// --env-file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

func main() {
	level := &slog.LevelVar{}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
	slog.SetDefault(logger)

	app := &appContext{stdout: os.Stdout, logger: logger, logLevel: level}
	parser, err := newParser(&CLI{}, app)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	if err := kctx.Run(); err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}

func newParser(cli *CLI, app *appContext) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("petstore"),
		kong.Description("Sample pet store API."),
		kong.UsageOnError(),
		kong.Bind(app),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
	)
}
