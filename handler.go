package rest

import (
	"context"
	"net/http"
	"slices"
)

// HandlerFunc serves one HTTP method of one route. The returned value is
// formatted by the endpoint's Response strategy:
//
//   - a value implementing http.Handler is a complete response and is served
//     as is;
//   - a Reply overrides the status code and adds headers, and its Data is
//     serialized;
//   - anything else is serialized with the response schema.
type HandlerFunc func(ctx context.Context, call *Call) (any, error)

// Reply lets a handler override the status code and add headers. Only the
// Reply type itself has this meaning; types embedding it are plain data.
type Reply struct {
	Data   any
	Status int
	Header http.Header
}

// Call is the per-request view a handler receives: the injected arguments,
// the pagination state and the cache validator.
type Call struct {
	request    *http.Request
	endpoint   *endpoint
	args       []any
	kwargs     map[string]any
	pagination *PaginationParameters
	header     http.Header
	etag       *etagState
}

// Request returns the underlying request.
func (c *Call) Request() *http.Request { return c.request }

// Args returns the positional arguments in declaration order.
func (c *Call) Args() []any { return c.args }

// Arg returns the i-th positional argument, or nil.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}

// Arg returns the i-th positional argument of call as a T. It returns the
// zero value when the argument is missing or of another type.
func Arg[T any](call *Call, i int) T {
	v, _ := call.Arg(i).(T)
	return v
}

// Kwargs returns the fields of every AsKwargs argument, keyed by wire name.
func (c *Call) Kwargs() map[string]any { return c.kwargs }

// Pagination returns the pagination state, or nil when the endpoint is not
// paginated.
func (c *Call) Pagination() *PaginationParameters { return c.pagination }

// Header returns the extra headers sent with a successful response.
func (c *Call) Header() http.Header { return c.header }

// CheckETag verifies the request's If-Match against the fingerprint of the
// current resource state. It returns ErrPreconditionFailed on mismatch and
// must be called on PUT, PATCH and DELETE endpoints using the ETag strategy
// before anything is modified.
func (c *Call) CheckETag(data any, schema ...*Schema) error {
	if c.etag == nil {
		return nil
	}
	if !slices.Contains(methodsNeedingCheck, c.request.Method) {
		c.endpoint.api.diag(c.endpoint, "etag_check_method", "ETag cannot be checked on this method")
	}
	return c.etag.check(data, schema)
}

// SetETag fixes the response ETag from data instead of the serialized
// response. Use it when the response does not cover everything that makes
// the resource unique. On GET and HEAD it returns ErrNotModified when the
// client already holds that version.
func (c *Call) SetETag(data any, schema ...*Schema) error {
	if c.etag == nil {
		return nil
	}
	if !slices.Contains(methodsAllowingSet, c.request.Method) {
		c.endpoint.api.diag(c.endpoint, "etag_set_method", "ETag cannot be set on this method")
	}
	return c.etag.set(data, schema)
}
