package rest

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
)

// PaginationParameters is the per-request pagination state handed to
// paginated handlers through Call.Pagination.
type PaginationParameters struct {
	Page     int
	PageSize int

	itemCount *int
}

// ErrItemCountSet is returned when the item count is set twice.
var ErrItemCountSet = errors.New("rest: item count already set")

// SetItemCount records the total number of items of the collection. It
// may be called once per request.
func (p *PaginationParameters) SetItemCount(n int) error {
	if p.itemCount != nil {
		return ErrItemCountSet
	}
	if n < 0 {
		return fmt.Errorf("rest: negative item count %d", n)
	}
	p.itemCount = &n
	return nil
}

// ItemCount returns the item count and whether it was set.
func (p *PaginationParameters) ItemCount() (int, bool) {
	if p.itemCount == nil {
		return 0, false
	}
	return *p.itemCount, true
}

// FirstItem returns the zero-based index of the first item of the page.
// Pages too far out to index saturate at math.MaxInt.
func (p *PaginationParameters) FirstItem() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// LastItem returns the zero-based index of the last item of the page.
func (p *PaginationParameters) LastItem() int {
	first := p.FirstItem()
	if p.PageSize <= 0 {
		return first - 1
	}
	if first > math.MaxInt-p.PageSize+1 {
		return math.MaxInt
	}
	return first + p.PageSize - 1
}

// Pager pages a collection returned by a handler. It must set the item
// count on params.
type Pager interface {
	Page(params *PaginationParameters, collection any) (any, error)
}

// PagerFunc adapts a function to Pager.
type PagerFunc func(params *PaginationParameters, collection any) (any, error)

// Page calls f.
func (f PagerFunc) Page(params *PaginationParameters, collection any) (any, error) {
	return f(params, collection)
}

// SlicePager pages any slice or array.
var SlicePager Pager = PagerFunc(pageSlice)

func pageSlice(params *PaginationParameters, collection any) (any, error) {
	rv := reflect.ValueOf(collection)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("rest: cannot page %T", collection)
	}
	if err := params.SetItemCount(rv.Len()); err != nil {
		return nil, err
	}

	first := min(params.FirstItem(), rv.Len())
	last := min(first+params.PageSize, rv.Len())
	if rv.Kind() == reflect.Array {
		page := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), 0, last-first)
		for i := first; i < last; i++ {
			page = reflect.Append(page, rv.Index(i))
		}
		return page.Interface(), nil
	}
	return rv.Slice(first, last).Interface(), nil
}

// PaginationMetadata is the content of the pagination header.
type PaginationMetadata struct {
	Total        int  `json:"total"`
	TotalPages   int  `json:"total_pages"`
	FirstPage    *int `json:"first_page,omitempty"`
	LastPage     *int `json:"last_page,omitempty"`
	Page         *int `json:"page,omitempty"`
	PreviousPage *int `json:"previous_page,omitempty"`
	NextPage     *int `json:"next_page,omitempty"`
}

// NewPaginationMetadata computes the metadata of one page. Page numbers
// outside the collection are left out.
func NewPaginationMetadata(page, pageSize, total int) PaginationMetadata {
	md := PaginationMetadata{Total: total}
	if pageSize > 0 {
		md.TotalPages = (total + pageSize - 1) / pageSize
	}
	if total == 0 {
		return md
	}

	first, last := 1, md.TotalPages
	md.FirstPage = &first
	md.LastPage = &last
	if page <= last {
		md.Page = &page
		if page > 1 {
			prev := page - 1
			md.PreviousPage = &prev
		}
		if page < last {
			next := page + 1
			md.NextPage = &next
		}
	}
	return md
}

// paginationSpec holds the resolved pagination settings of one endpoint.
type paginationSpec struct {
	pager       Pager
	page        int
	pageSize    int
	maxPageSize int
}

type paginationQuery struct {
	Page     int `json:"page" minimum:"1"`
	PageSize int `json:"page_size" minimum:"1"`
}

var paginationQuerySchema = SchemaFor[paginationQuery]()

// parsePagination reads page and page_size from the query string.
func parsePagination(r *http.Request, spec *paginationSpec, policy string) (*PaginationParameters, error) {
	query := r.URL.Query()
	values := url.Values{}
	values.Set("page", strconv.Itoa(spec.page))
	values.Set("page_size", strconv.Itoa(spec.pageSize))
	for _, name := range []string{"page", "page_size"} {
		if v, ok := query[name]; ok && len(v) > 0 {
			values.Set(name, v[0])
		}
	}

	loaded, err := paginationQuerySchema.loadValues(LocationQuery, values, UnknownExclude)
	if err != nil {
		return nil, err
	}
	q := loaded.(paginationQuery)

	if q.PageSize > spec.maxPageSize {
		if policy == PageSizeReject {
			verr := &ValidationError{}
			verr.Add(LocationQuery, "page_size", fmt.Sprintf("Must be less than or equal to %d.", spec.maxPageSize))
			return nil, verr
		}
		q.PageSize = spec.maxPageSize
	}
	return &PaginationParameters{Page: q.Page, PageSize: q.PageSize}, nil
}
