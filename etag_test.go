package rest_test

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

// itemResource is a single mutable item served with cache validation.
type itemResource struct {
	mu   sync.Mutex
	item Item
}

func (r *itemResource) get(context.Context, *rest.Call) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.item, nil
}

func (r *itemResource) put(_ context.Context, call *rest.Call) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := call.CheckETag(r.item); err != nil {
		return nil, err
	}
	r.item = rest.Arg[Item](call, 0)
	return r.item, nil
}

func (r *itemResource) del(_ context.Context, call *rest.Call) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := call.CheckETag(r.item); err != nil {
		return nil, err
	}
	r.item = Item{}
	return nil, nil
}

func etagAPI(t *testing.T, cfg func(*rest.Config), opts ...rest.Option) (*rest.API, *itemResource) {
	t.Helper()
	c := rest.DefaultConfig()
	c.Title, c.Version = "Test", "1"
	if cfg != nil {
		cfg(&c)
	}
	a, err := rest.New(append([]rest.Option{rest.WithConfig(c)}, opts...)...)
	require.NoError(t, err)

	res := &itemResource{item: Item{ID: 1, Name: "Rex"}}
	bp := rest.NewBlueprint("items", "/items")
	bp.Route("/{id:int}").
		Get(res.get, rest.ETag(), rest.Response(http.StatusOK, rest.SchemaFor[Item]())).
		Put(res.put, rest.ETag(),
			rest.Arguments(rest.SchemaFor[Item](), rest.LocationJSON),
			rest.Response(http.StatusOK, rest.SchemaFor[Item]()),
		).
		Delete(res.del, rest.ETag(), rest.Response(http.StatusNoContent, nil))
	register(t, a, bp)
	return a, res
}

func etagOf(t *testing.T, v any) string {
	t.Helper()
	token, err := rest.ComputeETag(v, nil)
	require.NoError(t, err)
	return `"` + token + `"`
}

func TestETag_get(t *testing.T) {
	t.Parallel()

	rex := Item{ID: 1, Name: "Rex"}

	tests := map[string]struct {
		ifNoneMatch string
		wantStatus  int
	}{
		"no condition":   {wantStatus: http.StatusOK},
		"current":        {ifNoneMatch: "current", wantStatus: http.StatusNotModified},
		"weak current":   {ifNoneMatch: "weak", wantStatus: http.StatusNotModified},
		"one of several": {ifNoneMatch: "list", wantStatus: http.StatusNotModified},
		"wildcard":       {ifNoneMatch: "*", wantStatus: http.StatusNotModified},
		"stale":          {ifNoneMatch: `"stale"`, wantStatus: http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a, _ := etagAPI(t, nil)
			current := etagOf(t, rex)

			var header []string
			switch tc.ifNoneMatch {
			case "":
			case "current":
				header = []string{"If-None-Match", current}
			case "weak":
				header = []string{"If-None-Match", "W/" + current}
			case "list":
				header = []string{"If-None-Match", `"other", ` + current}
			default:
				header = []string{"If-None-Match", tc.ifNoneMatch}
			}

			rec := serve(t, a, http.MethodGet, "/items/1", "", header...)
			require.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, current, rec.Header().Get("ETag"))
			if tc.wantStatus == http.StatusNotModified {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestETag_conditional_update(t *testing.T) {
	t.Parallel()

	a, res := etagAPI(t, nil)
	current := etagOf(t, res.item)

	rec := serve(t, a, http.MethodPut, "/items/1", `{"id": 1, "name": "Max"}`)
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, `This request is required to be conditional; try using "If-Match".`, decodeError(t, rec).Message)

	rec = serve(t, a, http.MethodPut, "/items/1", `{"id": 1, "name": "Max"}`, "If-Match", `"stale"`)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "Rex", res.item.Name)

	rec = serve(t, a, http.MethodPut, "/items/1", `{"id": 1, "name": "Max"}`, "If-Match", current)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Max", res.item.Name)
	updated := rec.Header().Get("ETag")
	assert.Equal(t, etagOf(t, Item{ID: 1, Name: "Max"}), updated)
	assert.NotEqual(t, current, updated)

	rec = serve(t, a, http.MethodDelete, "/items/1", "", "If-Match", current)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = serve(t, a, http.MethodDelete, "/items/1", "", "If-Match", updated)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestETag_unchecked(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		strict     bool
		wantStatus int
	}{
		"lenient": {wantStatus: http.StatusOK},
		"strict":  {strict: true, wantStatus: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			c := rest.DefaultConfig()
			c.Title, c.Version = "Test", "1"
			c.ETagStrict = tc.strict
			a, err := rest.New(rest.WithConfig(c), rest.WithLogger(newTestLogger(&logs)))
			require.NoError(t, err)

			bp := rest.NewBlueprint("items", "/items")
			bp.Route("/{id:int}").Patch(returning(Item{ID: 1, Name: "Rex"}), rest.ETag(),
				rest.Response(http.StatusOK, rest.SchemaFor[Item]()))
			register(t, a, bp)

			rec := serve(t, a, http.MethodPatch, "/items/1", "", "If-Match", `"anything"`)
			require.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, logs.String(), "ETag not checked in endpoint")
			if tc.strict {
				assert.Equal(t, "ETag not checked in endpoint.", decodeError(t, rec).Message)
			}
		})
	}
}

func TestETag_set_explicitly(t *testing.T) {
	t.Parallel()

	version := map[string]int{"version": 7}
	a := newAPI(t)
	bp := rest.NewBlueprint("items", "/items")
	bp.Route("/{id:int}").Get(func(_ context.Context, call *rest.Call) (any, error) {
		if err := call.SetETag(version); err != nil {
			return nil, err
		}
		return Item{ID: 1, Name: "Rex"}, nil
	}, rest.ETag(), rest.Response(http.StatusOK, rest.SchemaFor[Item]()))
	register(t, a, bp)

	want := etagOf(t, version)
	rec := serve(t, a, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, rec.Header().Get("ETag"))

	rec = serve(t, a, http.MethodGet, "/items/1", "", "If-None-Match", want)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, want, rec.Header().Get("ETag"))
}

func TestETag_not_modified_keeps_headers(t *testing.T) {
	t.Parallel()

	rex := Item{ID: 1, Name: "Rex"}

	tests := map[string]struct {
		handler rest.HandlerFunc
		token   any
	}{
		"computed": {
			handler: func(_ context.Context, call *rest.Call) (any, error) {
				call.Header().Set("Cache-Control", "max-age=60")
				return rex, nil
			},
			token: rex,
		},
		"set by handler": {
			handler: func(_ context.Context, call *rest.Call) (any, error) {
				call.Header().Set("Cache-Control", "max-age=60")
				if err := call.SetETag(map[string]int{"version": 2}); err != nil {
					return nil, err
				}
				return rex, nil
			},
			token: map[string]int{"version": 2},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := newAPI(t)
			bp := rest.NewBlueprint("items", "/items")
			bp.Route("/{id:int}").Get(tc.handler, rest.ETag(), rest.Response(http.StatusOK, rest.SchemaFor[Item]()))
			register(t, a, bp)

			want := etagOf(t, tc.token)
			rec := serve(t, a, http.MethodGet, "/items/1", "", "If-None-Match", want)
			require.Equal(t, http.StatusNotModified, rec.Code)
			assert.Equal(t, want, rec.Header().Get("ETag"))
			assert.Equal(t, []string{"max-age=60"}, rec.Header().Values("Cache-Control"))
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestETag_schema_option(t *testing.T) {
	t.Parallel()

	type Public struct {
		Name string `json:"name"`
	}

	a := newAPI(t)
	bp := rest.NewBlueprint("items", "/items")
	bp.Route("/{id:int}").Get(returning(Public{Name: "Rex"}),
		rest.ETag(rest.ETagSchema(rest.SchemaFor[Public]())),
	)
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, etagOf(t, Public{Name: "Rex"}), rec.Header().Get("ETag"))
}

func TestETag_disabled(t *testing.T) {
	t.Parallel()

	a, res := etagAPI(t, func(c *rest.Config) { c.ETagDisabled = true })

	rec := serve(t, a, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))

	rec = serve(t, a, http.MethodPut, "/items/1", `{"id": 1, "name": "Max"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Max", res.item.Name)
}

func TestComputeETag(t *testing.T) {
	t.Parallel()

	a, err := rest.ComputeETag(map[string]any{"b": 1, "a": 2}, nil)
	require.NoError(t, err)
	b, err := rest.ComputeETag(map[string]any{"a": 2, "b": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b, "key order does not change the fingerprint")
	assert.Len(t, a, 16)

	withHeader, err := rest.ComputeETag(map[string]any{"a": 2, "b": 1}, [][2]string{{"X-Pagination", `{"total":1}`}})
	require.NoError(t, err)
	assert.NotEqual(t, a, withHeader)
}
