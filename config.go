package rest

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the recognised API options. Every field can be set from the
// environment; LoadConfig reads variables under an optional prefix so that
// several APIs in one process keep separate settings.
type Config struct {
	Title          string `env:"API_TITLE"`
	Version        string `env:"API_VERSION"`
	OpenAPIVersion string `env:"OPENAPI_VERSION" envDefault:"3.0.3"`

	// Documentation routes are served only when URLPrefix is set.
	URLPrefix string `env:"OPENAPI_URL_PREFIX"`
	JSONPath  string `env:"OPENAPI_JSON_PATH" envDefault:"openapi.json"`
	YAMLPath  string `env:"OPENAPI_YAML_PATH"`

	RedocPath        string `env:"OPENAPI_REDOC_PATH"`
	RedocURL         string `env:"OPENAPI_REDOC_URL"`
	RedocVersion     string `env:"OPENAPI_REDOC_VERSION" envDefault:"2.1.5"`
	SwaggerUIPath    string `env:"OPENAPI_SWAGGER_UI_PATH"`
	SwaggerUIURL     string `env:"OPENAPI_SWAGGER_UI_URL"`
	SwaggerUIVersion string `env:"OPENAPI_SWAGGER_UI_VERSION" envDefault:"5.17.14"`
	RapiDocPath      string `env:"OPENAPI_RAPIDOC_PATH"`
	RapiDocURL       string `env:"OPENAPI_RAPIDOC_URL"`
	RapiDocVersion   string `env:"OPENAPI_RAPIDOC_VERSION" envDefault:"9.3.4"`

	DefaultPage      int    `env:"PAGINATION_DEFAULT_PAGE" envDefault:"1"`
	DefaultPageSize  int    `env:"PAGINATION_DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize      int    `env:"PAGINATION_MAX_PAGE_SIZE" envDefault:"100"`
	PageSizePolicy   string `env:"PAGINATION_PAGE_SIZE_POLICY" envDefault:"clamp"`
	PaginationHeader string `env:"PAGINATION_HEADER_NAME" envDefault:"X-Pagination"`
	// PaginationHeaderDisabled stops the metadata header from being sent
	// and documented.
	PaginationHeaderDisabled bool `env:"PAGINATION_HEADER_DISABLED"`

	ETagDisabled bool `env:"ETAG_DISABLED"`
	// ETagStrict fails requests whose handler never checked the ETag.
	ETagStrict bool `env:"ETAG_STRICT"`

	// UnknownPolicies overrides the per-location unknown field policy,
	// e.g. "query:raise,json:exclude".
	UnknownPolicies map[string]string `env:"UNKNOWN_POLICIES"`
	// ContentTypes overrides the per-location request content type.
	ContentTypes map[string]string `env:"LOCATION_CONTENT_TYPES"`

	DocstringDelimiter string `env:"DOCSTRING_DELIMITER" envDefault:"---"`
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	// Parsing an empty environment only applies envDefault values.
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("rest: default config: %v", err))
	}
	return cfg
}

// LoadConfig reads the configuration from the environment. With prefix
// "V1_" the title comes from V1_API_TITLE.
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// PageSizePolicy values.
const (
	PageSizeClamp  = "clamp"
	PageSizeReject = "reject"
)

// settings is the validated, resolved form of Config.
type settings struct {
	Config
	oas2           bool
	unknown        map[Location]UnknownPolicy
	contentTypes   map[Location]string
	paginationName string
}

func resolveConfig(cfg Config) (*settings, error) {
	if cfg.Title == "" {
		return nil, configErrorf("", "API title must be set")
	}
	if cfg.Version == "" {
		return nil, configErrorf("", "API version must be set")
	}

	s := &settings{
		Config:       cfg,
		unknown:      defaultUnknownPolicies(),
		contentTypes: defaultLocationContentTypes(),
	}

	switch {
	case cfg.OpenAPIVersion == "2.0":
		s.oas2 = true
	case strings.HasPrefix(cfg.OpenAPIVersion, "3."):
	default:
		return nil, configErrorf("", "unsupported OpenAPI version %q", cfg.OpenAPIVersion)
	}

	if cfg.DefaultPage < 1 || cfg.DefaultPageSize < 1 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, configErrorf("", "invalid pagination defaults page=%d page_size=%d max_page_size=%d",
			cfg.DefaultPage, cfg.DefaultPageSize, cfg.MaxPageSize)
	}
	if cfg.PageSizePolicy != PageSizeClamp && cfg.PageSizePolicy != PageSizeReject {
		return nil, configErrorf("", "unknown page size policy %q", cfg.PageSizePolicy)
	}

	for name, value := range cfg.UnknownPolicies {
		loc := Location(name)
		if !loc.Valid() {
			return nil, configErrorf("", "unknown location %q", name)
		}
		policy, ok := parseUnknownPolicy(value)
		if !ok {
			return nil, configErrorf("", "unknown field policy %q for %s", value, name)
		}
		s.unknown[loc] = policy
	}
	for name, ct := range cfg.ContentTypes {
		loc := Location(name)
		if !loc.BodyBearing() {
			return nil, configErrorf("", "content type cannot be set for location %q", name)
		}
		s.contentTypes[loc] = ct
	}

	if !cfg.PaginationHeaderDisabled {
		s.paginationName = cfg.PaginationHeader
	}
	if cfg.DocstringDelimiter == "" {
		s.DocstringDelimiter = "---"
	}
	return s, nil
}
