package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{ID: i + 1, Name: "item"}
	}
	return out
}

func paginatedAPI(t *testing.T, cfg func(*rest.Config), h rest.HandlerFunc, opts ...rest.PaginateOption) *rest.API {
	t.Helper()
	c := rest.DefaultConfig()
	c.Title, c.Version = "Test", "1"
	if cfg != nil {
		cfg(&c)
	}
	a, err := rest.New(rest.WithConfig(c))
	require.NoError(t, err)

	bp := rest.NewBlueprint("items", "/items")
	bp.Route("/").Get(h,
		rest.Response(http.StatusOK, rest.SchemaFor[Item](rest.Many())),
		rest.Paginate(opts...),
	)
	register(t, a, bp)
	return a
}

func TestPaginate_slice_pager(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		query      string
		wantIDs    []int
		wantHeader string
	}{
		"defaults": {
			query:      "",
			wantIDs:    []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3,"page":1,"next_page":2}`,
		},
		"middle page": {
			query:      "?page=2",
			wantIDs:    []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3,"page":2,"previous_page":1,"next_page":3}`,
		},
		"last page": {
			query:      "?page=3",
			wantIDs:    []int{21, 22, 23, 24, 25},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3,"page":3,"previous_page":2}`,
		},
		"page size": {
			query:      "?page=2&page_size=20",
			wantIDs:    []int{21, 22, 23, 24, 25},
			wantHeader: `{"total":25,"total_pages":2,"first_page":1,"last_page":2,"page":2,"previous_page":1}`,
		},
		"beyond range": {
			query:      "?page=5",
			wantIDs:    []int{},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3}`,
		},
		"page index past int range": {
			query:      "?page=1000000000000000000&page_size=10",
			wantIDs:    []int{},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3}`,
		},
		"largest page": {
			query:      "?page=9223372036854775807",
			wantIDs:    []int{},
			wantHeader: `{"total":25,"total_pages":3,"first_page":1,"last_page":3}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := paginatedAPI(t, nil, returning(items(25)), rest.WithPager(rest.SlicePager))
			rec := serve(t, a, http.MethodGet, "/items/"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got []Item
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			ids := make([]int, 0, len(got))
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.JSONEq(t, tc.wantHeader, rec.Header().Get("X-Pagination"))
		})
	}
}

func TestPaginate_handler_pages_itself(t *testing.T) {
	t.Parallel()

	var got rest.PaginationParameters
	a := paginatedAPI(t, nil, func(_ context.Context, call *rest.Call) (any, error) {
		p := call.Pagination()
		got = *p
		if err := p.SetItemCount(100); err != nil {
			return nil, err
		}
		return items(25)[p.FirstItem() : p.LastItem()+1], nil
	}, rest.DefaultPageSize(5))

	rec := serve(t, a, http.MethodGet, "/items/?page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 5, got.PageSize)

	var meta rest.PaginationMetadata
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("X-Pagination")), &meta))
	assert.Equal(t, 100, meta.Total)
	assert.Equal(t, 20, meta.TotalPages)
	require.NotNil(t, meta.Page)
	assert.Equal(t, 3, *meta.Page)
}

func TestPaginate_item_count_unset(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	c := rest.DefaultConfig()
	c.Title, c.Version = "Test", "1"
	a, err := rest.New(rest.WithConfig(c), rest.WithLogger(newTestLogger(&logs)))
	require.NoError(t, err)
	bp := rest.NewBlueprint("items", "/items")
	bp.Route("/").Get(returning(items(3)), rest.Paginate())
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/items/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Pagination"))
	assert.Contains(t, logs.String(), "item count not set")
}

func TestPaginate_item_count_set_twice(t *testing.T) {
	t.Parallel()

	a := paginatedAPI(t, nil, func(_ context.Context, call *rest.Call) (any, error) {
		if err := call.Pagination().SetItemCount(25); err != nil {
			return nil, err
		}
		return items(25), nil
	}, rest.WithPager(rest.SlicePager))

	rec := serve(t, a, http.MethodGet, "/items/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var p rest.PaginationParameters
	require.NoError(t, p.SetItemCount(1))
	assert.ErrorIs(t, p.SetItemCount(2), rest.ErrItemCountSet)
	n, ok := p.ItemCount()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestPaginate_page_size_limit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		policy       string
		query        string
		wantStatus   int
		wantPageSize int
		wantErrors   map[string][]string
	}{
		"clamped": {
			policy:       rest.PageSizeClamp,
			query:        "?page_size=500",
			wantStatus:   http.StatusOK,
			wantPageSize: 50,
		},
		"rejected": {
			policy:     rest.PageSizeReject,
			query:      "?page_size=500",
			wantStatus: http.StatusUnprocessableEntity,
			wantErrors: map[string][]string{"page_size": {"Must be less than or equal to 50."}},
		},
		"at maximum": {
			policy:       rest.PageSizeReject,
			query:        "?page_size=50",
			wantStatus:   http.StatusOK,
			wantPageSize: 50,
		},
		"zero page": {
			policy:     rest.PageSizeClamp,
			query:      "?page=0",
			wantStatus: http.StatusUnprocessableEntity,
			wantErrors: map[string][]string{"page": {"Must be greater than or equal to 1."}},
		},
		"not a number": {
			policy:     rest.PageSizeClamp,
			query:      "?page_size=ten",
			wantStatus: http.StatusUnprocessableEntity,
			wantErrors: map[string][]string{"page_size": {"Not a valid integer."}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var pageSize int
			a := paginatedAPI(t,
				func(c *rest.Config) { c.PageSizePolicy = tc.policy },
				func(_ context.Context, call *rest.Call) (any, error) {
					pageSize = call.Pagination().PageSize
					return items(3), nil
				},
				rest.WithPager(rest.SlicePager), rest.MaxPageSize(50),
			)

			rec := serve(t, a, http.MethodGet, "/items/"+tc.query, "")
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantErrors != nil {
				assert.Equal(t, tc.wantErrors, fieldErrors(t, decodeError(t, rec), "query"))
				return
			}
			assert.Equal(t, tc.wantPageSize, pageSize)
		})
	}
}

func TestPaginate_header_disabled(t *testing.T) {
	t.Parallel()

	a := paginatedAPI(t,
		func(c *rest.Config) { c.PaginationHeaderDisabled = true },
		returning(items(25)),
		rest.WithPager(rest.SlicePager),
	)

	rec := serve(t, a, http.MethodGet, "/items/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Pagination"))

	op := specOperation(t, a, "/items/", http.MethodGet)
	assert.Empty(t, op.Responses["200"].Headers)
}

func TestPaginate_custom_header_name(t *testing.T) {
	t.Parallel()

	a := paginatedAPI(t,
		func(c *rest.Config) { c.PaginationHeader = "Link-Meta" },
		returning(items(2)),
		rest.WithPager(rest.SlicePager),
	)

	rec := serve(t, a, http.MethodGet, "/items/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2,"total_pages":1,"first_page":1,"last_page":1,"page":1}`, rec.Header().Get("Link-Meta"))
}

func TestNewPaginationMetadata(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		page, pageSize, total int
		want                  string
	}{
		"empty": {
			page: 1, pageSize: 10, total: 0,
			want: `{"total":0,"total_pages":0}`,
		},
		"single page": {
			page: 1, pageSize: 10, total: 5,
			want: `{"total":5,"total_pages":1,"first_page":1,"last_page":1,"page":1}`,
		},
		"middle": {
			page: 2, pageSize: 10, total: 25,
			want: `{"total":25,"total_pages":3,"first_page":1,"last_page":3,"page":2,"previous_page":1,"next_page":3}`,
		},
		"exact multiple": {
			page: 2, pageSize: 5, total: 10,
			want: `{"total":10,"total_pages":2,"first_page":1,"last_page":2,"page":2,"previous_page":1}`,
		},
		"past the end": {
			page: 4, pageSize: 10, total: 25,
			want: `{"total":25,"total_pages":3,"first_page":1,"last_page":3}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			raw, err := json.Marshal(rest.NewPaginationMetadata(tc.page, tc.pageSize, tc.total))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestPaginationParameters_item_range(t *testing.T) {
	t.Parallel()

	p := rest.PaginationParameters{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.FirstItem())
	assert.Equal(t, 29, p.LastItem())

	huge := rest.PaginationParameters{Page: math.MaxInt, PageSize: 10}
	assert.Equal(t, math.MaxInt, huge.FirstItem())
	assert.Equal(t, math.MaxInt, huge.LastItem())
}
