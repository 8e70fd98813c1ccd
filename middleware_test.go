package rest_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

func header(name, value string) rest.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add(name, value)
			next.ServeHTTP(w, r)
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	a := newAPI(t)
	a.Use(rest.Recovery())
	bp := rest.NewBlueprint("test", "")
	bp.Route("/panic").Get(func(context.Context, *rest.Call) (any, error) {
		panic("something broke")
	})
	bp.Route("/abort").Get(func(context.Context, *rest.Call) (any, error) {
		panic(http.ErrAbortHandler)
	})
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/panic", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.NotContains(t, rec.Body.String(), "something broke")

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(t, a, http.MethodGet, "/abort", "")
	})
}

func TestMiddleware_order(t *testing.T) {
	t.Parallel()

	a := newAPI(t)
	a.Use(header("X-Order", "api-1"), header("X-Order", "api-2"))

	bp := rest.NewBlueprint("test", "/scoped", rest.WithBlueprintMiddleware(header("X-Order", "blueprint")))
	bp.Route("/").Get(returning(nil))
	register(t, a, bp)

	other := rest.NewBlueprint("other", "/plain")
	other.Route("/").Get(returning(nil))
	register(t, a, other)

	rec := serve(t, a, http.MethodGet, "/scoped/", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "api-1,api-2,blueprint", strings.Join(rec.Header().Values("X-Order"), ","))

	rec = serve(t, a, http.MethodGet, "/plain/", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api-1", "api-2"}, rec.Header().Values("X-Order"))
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	type tenant string

	a := newAPI(t)
	a.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, rest.SetValue(r, tenant("acme")))
		})
	})
	bp := rest.NewBlueprint("test", "")
	bp.Route("/t").Get(func(ctx context.Context, _ *rest.Call) (any, error) {
		v, ok := rest.GetValue[tenant](ctx)
		if !ok {
			return nil, rest.Error(http.StatusUnauthorized, "no tenant")
		}
		return string(v), nil
	})
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/t", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"acme"`, rec.Body.String())
}

func TestRoute_body_limit(t *testing.T) {
	t.Parallel()

	a := newAPI(t)
	bp := rest.NewBlueprint("test", "")
	bp.Route("/t", rest.RouteBodyLimit(16)).Post(echoArgs, rest.Arguments(rest.SchemaFor[Item](), rest.LocationJSON))
	register(t, a, bp)

	rec := serve(t, a, http.MethodPost, "/t", `{"name": "a very long name indeed"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decodeError(t, rec).Message)

	rec = serve(t, a, http.MethodPost, "/t", `{"name": "Rex"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoute_options(t *testing.T) {
	t.Parallel()

	a := newAPI(t)
	bp := rest.NewBlueprint("test", "/things")
	bp.Route("/{id}",
		rest.RouteTags("admin", "things"),
		rest.RouteDeprecated(),
		rest.RouteParameters(rest.Parameter{Name: "X-Tenant", In: "header", Required: true, Schema: &rest.JSONSchema{Type: "string"}}),
	).Get(returning(nil))
	register(t, a, bp)

	op := specOperation(t, a, "/things/{id}", http.MethodGet)
	assert.Equal(t, []string{"admin", "things"}, op.Tags)
	assert.True(t, op.Deprecated)

	doc, err := a.Spec()
	require.NoError(t, err)
	item, ok := doc.Paths.Get("/things/{id}")
	require.True(t, ok)
	require.Len(t, item.Parameters, 2)
	assert.Equal(t, "id", item.Parameters[0].Name)
	assert.Equal(t, "X-Tenant", item.Parameters[1].Name)
}

func TestRegister_errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		setup func(a *rest.API) error
		want  string
	}{
		"blueprint twice": {
			setup: func(a *rest.API) error {
				bp := rest.NewBlueprint("dup", "/dup")
				bp.Route("/").Get(returning(nil))
				if err := a.Register(bp); err != nil {
					return err
				}
				again := rest.NewBlueprint("dup", "/other")
				return a.Register(again)
			},
			want: `blueprint "dup" registered twice`,
		},
		"method twice": {
			setup: func(a *rest.API) error {
				bp := rest.NewBlueprint("b", "/b")
				bp.Route("/").Get(returning(nil)).Get(returning(nil))
				return a.Register(bp)
			},
			want: "method declared twice",
		},
		"nil handler": {
			setup: func(a *rest.API) error {
				bp := rest.NewBlueprint("b", "/b")
				bp.Route("/").Get(nil)
				return a.Register(bp)
			},
			want: "nil handler",
		},
		"unsupported method": {
			setup: func(a *rest.API) error {
				bp := rest.NewBlueprint("b", "/b")
				bp.Route("/").Handle("TRACE", returning(nil))
				return a.Register(bp)
			},
			want: "unsupported method",
		},
		"conflicting routes": {
			setup: func(a *rest.API) error {
				first := rest.NewBlueprint("first", "/x")
				first.Route("/").Get(returning(nil))
				if err := a.Register(first); err != nil {
					return err
				}
				second := rest.NewBlueprint("second", "/x")
				second.Route("/").Get(returning(nil))
				return a.Register(second)
			},
			want: "GET /x/",
		},
		"wildcard before the end": {
			setup: func(a *rest.API) error {
				bp := rest.NewBlueprint("b", "/b")
				bp.Route("/{rest:path}/edit").Get(returning(nil))
				return a.Register(bp)
			},
			want: "GET /b/{rest:path}/edit",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.setup(newAPI(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, rest.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
