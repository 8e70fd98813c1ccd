package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := rest.DefaultConfig()
	assert.Equal(t, "3.0.3", cfg.OpenAPIVersion)
	assert.Equal(t, "openapi.json", cfg.JSONPath)
	assert.Equal(t, 1, cfg.DefaultPage)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, rest.PageSizeClamp, cfg.PageSizePolicy)
	assert.Equal(t, "X-Pagination", cfg.PaginationHeader)
	assert.Equal(t, "---", cfg.DocstringDelimiter)
	assert.Empty(t, cfg.URLPrefix)
	assert.False(t, cfg.ETagDisabled)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("V1_API_TITLE", "Pets")
	t.Setenv("V1_API_VERSION", "2.1")
	t.Setenv("V1_OPENAPI_VERSION", "2.0")
	t.Setenv("V1_PAGINATION_MAX_PAGE_SIZE", "50")
	t.Setenv("V1_UNKNOWN_POLICIES", "query:raise,json:exclude")
	t.Setenv("V1_ETAG_DISABLED", "true")
	t.Setenv("API_TITLE", "Unprefixed")

	cfg, err := rest.LoadConfig("V1_")
	require.NoError(t, err)
	assert.Equal(t, "Pets", cfg.Title)
	assert.Equal(t, "2.1", cfg.Version)
	assert.Equal(t, "2.0", cfg.OpenAPIVersion)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, map[string]string{"query": "raise", "json": "exclude"}, cfg.UnknownPolicies)
	assert.True(t, cfg.ETagDisabled)

	a, err := rest.New(rest.WithConfig(cfg))
	require.NoError(t, err)
	doc, err := a.Spec()
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "Pets", doc.Info.Title)
}

func TestLoadConfig_invalid_value(t *testing.T) {
	t.Setenv("V2_PAGINATION_MAX_PAGE_SIZE", "lots")

	_, err := rest.LoadConfig("V2_")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestNew_invalid_config(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		modify func(*rest.Config)
		want   string
	}{
		"no title": {
			modify: func(c *rest.Config) { c.Title = "" },
			want:   "API title must be set",
		},
		"no version": {
			modify: func(c *rest.Config) { c.Version = "" },
			want:   "API version must be set",
		},
		"unsupported openapi version": {
			modify: func(c *rest.Config) { c.OpenAPIVersion = "4.0" },
			want:   `unsupported OpenAPI version "4.0"`,
		},
		"max below default page size": {
			modify: func(c *rest.Config) { c.MaxPageSize = 5 },
			want:   "invalid pagination defaults",
		},
		"page size policy": {
			modify: func(c *rest.Config) { c.PageSizePolicy = "truncate" },
			want:   `unknown page size policy "truncate"`,
		},
		"unknown policy location": {
			modify: func(c *rest.Config) { c.UnknownPolicies = map[string]string{"body": "raise"} },
			want:   `unknown location "body"`,
		},
		"unknown policy value": {
			modify: func(c *rest.Config) { c.UnknownPolicies = map[string]string{"query": "ignore"} },
			want:   `unknown field policy "ignore"`,
		},
		"content type on flat location": {
			modify: func(c *rest.Config) { c.ContentTypes = map[string]string{"query": "text/plain"} },
			want:   `content type cannot be set for location "query"`,
		},
		"clashing documentation routes": {
			modify: func(c *rest.Config) {
				c.URLPrefix = "/docs"
				c.YAMLPath = "openapi.json"
			},
			want: "documentation route",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := rest.DefaultConfig()
			cfg.Title, cfg.Version = "Test", "1"
			tc.modify(&cfg)

			_, err := rest.New(rest.WithConfig(cfg))
			require.Error(t, err)
			assert.ErrorIs(t, err, rest.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_location_overrides(t *testing.T) {
	t.Parallel()

	cfg := rest.DefaultConfig()
	cfg.Title, cfg.Version = "Test", "1"
	cfg.UnknownPolicies = map[string]string{"query": "raise"}
	cfg.ContentTypes = map[string]string{"json": "application/vnd.api+json"}
	a, err := rest.New(rest.WithConfig(cfg))
	require.NoError(t, err)

	bp := rest.NewBlueprint("test", "")
	bp.Route("/t").
		Get(echoArgs, rest.Arguments(rest.SchemaFor[Listing](), rest.LocationQuery)).
		Post(echoArgs, rest.Arguments(rest.SchemaFor[Item](), rest.LocationJSON))
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/t?sort=id&color=red", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string][]string{"color": {"Unknown field."}}, fieldErrors(t, decodeError(t, rec), "query"))

	op := specOperation(t, a, "/t", http.MethodPost)
	assert.Contains(t, op.RequestBody.Content, "application/vnd.api+json")
}

func TestAPI_options(t *testing.T) {
	t.Parallel()

	type Money struct {
		Cents int64
	}
	type Price struct {
		Amount Money `json:"amount"`
	}

	a := newAPI(t,
		rest.WithTitle("Shop"),
		rest.WithVersion("3"),
		rest.WithOpenAPIVersion("3.1.0"),
		rest.WithFieldType[Money](rest.JSONSchema{Type: "string", Format: "decimal"}),
	)
	bp := rest.NewBlueprint("prices", "/prices")
	bp.Route("/").Get(returning(nil), rest.Response(http.StatusOK, rest.SchemaFor[Price]()))
	register(t, a, bp)

	doc, err := a.Spec()
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", doc.OpenAPI)
	assert.Equal(t, rest.Info{Title: "Shop", Version: "3"}, doc.Info)
	assert.Equal(t, "Shop", a.Config().Title)

	schema := specOperation(t, a, "/prices/", http.MethodGet).Responses["200"].Content["application/json"].Schema
	assert.Equal(t, rest.JSONSchema{Type: "string", Format: "decimal"}, schema.Properties["amount"])
}
