package rest

// Strategy is one annotation attached to an endpoint: an argument to
// inject, the response format, pagination, cache validation or extra
// documentation. Strategies are applied in order when the endpoint is
// registered.
type Strategy interface {
	record(r *recorder) error
}

type strategyFunc func(r *recorder) error

func (f strategyFunc) record(r *recorder) error { return f(r) }

// argument is the recorded fragment of an Arguments strategy.
type argument struct {
	schema      *Schema
	location    Location
	asKwargs    bool
	unknown     UnknownPolicy
	contentType string
	required    bool
	description string
	example     any
	errorStatus int
}

// ArgOption configures an Arguments strategy.
type ArgOption func(*argument)

// AsKwargs spreads the loaded fields into Call.Kwargs instead of passing
// the value positionally.
func AsKwargs() ArgOption {
	return func(a *argument) { a.asKwargs = true }
}

// Unknown overrides the unknown field policy of the location.
func Unknown(policy UnknownPolicy) ArgOption {
	return func(a *argument) { a.unknown = policy }
}

// ContentType overrides the documented request content type of a body argument.
func ContentType(ct string) ArgOption {
	return func(a *argument) { a.contentType = ct }
}

// Optional documents a body argument as not required.
func Optional() ArgOption {
	return func(a *argument) { a.required = false }
}

// ArgDescription documents a body argument.
func ArgDescription(s string) ArgOption {
	return func(a *argument) { a.description = s }
}

// ArgExample documents an example body.
func ArgExample(v any) ArgOption {
	return func(a *argument) { a.example = v }
}

// ValidationStatus sets the status returned when the argument fails validation.
func ValidationStatus(code int) ArgOption {
	return func(a *argument) { a.errorStatus = code }
}

// Arguments injects schema loaded from loc into the handler call.
// Stacked Arguments are loaded and injected in declaration order.
func Arguments(schema *Schema, loc Location, opts ...ArgOption) Strategy {
	a := &argument{schema: schema, location: loc, required: true}
	for _, opt := range opts {
		opt(a)
	}
	return strategyFunc(func(r *recorder) error {
		return r.record(nsArguments, a)
	})
}

// responseSpec is the recorded fragment of a Response or AltResponse strategy.
type responseSpec struct {
	status      int
	schema      *Schema
	description string
	contentType string
	example     any
	headers     map[string]Header
	ref         string
}

// ResponseOption configures a Response or AltResponse strategy.
type ResponseOption func(*responseSpec)

// Description documents the response.
func Description(s string) ResponseOption {
	return func(r *responseSpec) { r.description = s }
}

// ResponseContentType sets the documented response content type.
func ResponseContentType(ct string) ResponseOption {
	return func(r *responseSpec) { r.contentType = ct }
}

// Example documents an example response body.
func Example(v any) ResponseOption {
	return func(r *responseSpec) { r.example = v }
}

// Headers documents response headers.
func Headers(h map[string]Header) ResponseOption {
	return func(r *responseSpec) { r.headers = h }
}

// Ref documents an alternate response as a reference to a component response.
func Ref(name string) ResponseOption {
	return func(r *responseSpec) { r.ref = name }
}

func newResponseSpec(status int, schema *Schema, opts []ResponseOption) *responseSpec {
	spec := &responseSpec{status: status, schema: schema}
	for _, opt := range opts {
		opt(spec)
	}
	return spec
}

// Response serializes the handler result with schema and answers status.
// A nil schema sends the result as is.
func Response(status int, schema *Schema, opts ...ResponseOption) Strategy {
	spec := newResponseSpec(status, schema, opts)
	return strategyFunc(func(r *recorder) error {
		return r.record(nsResponse, spec)
	})
}

// AltResponse documents another response the endpoint may produce, such as
// an error shape or a redirect. It does not change runtime behavior.
func AltResponse(status int, schema *Schema, opts ...ResponseOption) Strategy {
	spec := newResponseSpec(status, schema, opts)
	return strategyFunc(func(r *recorder) error {
		return r.record(nsAltResponse, spec)
	})
}

// PaginateOption configures a Paginate strategy.
type PaginateOption func(*paginationSpec)

// WithPager pages the collection returned by the handler. Without a
// pager the handler pages itself and sets the item count.
func WithPager(p Pager) PaginateOption {
	return func(s *paginationSpec) { s.pager = p }
}

// DefaultPage overrides the default page.
func DefaultPage(n int) PaginateOption {
	return func(s *paginationSpec) { s.page = n }
}

// DefaultPageSize overrides the default page size.
func DefaultPageSize(n int) PaginateOption {
	return func(s *paginationSpec) { s.pageSize = n }
}

// MaxPageSize overrides the maximum page size.
func MaxPageSize(n int) PaginateOption {
	return func(s *paginationSpec) { s.maxPageSize = n }
}

// Paginate reads page and page_size from the query string and sends
// pagination metadata in a response header.
func Paginate(opts ...PaginateOption) Strategy {
	spec := &paginationSpec{}
	for _, opt := range opts {
		opt(spec)
	}
	return strategyFunc(func(r *recorder) error {
		return r.record(nsPagination, spec)
	})
}

// ETagOption configures an ETag strategy.
type ETagOption func(*etagSpec)

// ETagSchema computes the automatic ETag from the result serialized with
// schema instead of the response schema.
func ETagSchema(schema *Schema) ETagOption {
	return func(s *etagSpec) { s.schema = schema }
}

// ETag enables conditional requests: 304 on GET and HEAD when the client
// holds the current version, and If-Match checks on PUT, PATCH and DELETE.
func ETag(opts ...ETagOption) Strategy {
	spec := &etagSpec{}
	for _, opt := range opts {
		opt(spec)
	}
	return strategyFunc(func(r *recorder) error {
		return r.record(nsETag, spec)
	})
}

// Doc deep-merges free-form fields into the endpoint's operation
// document. It takes precedence over every generated field. Response
// keys may be status numbers, decimal strings, names such as
// "NOT_FOUND", ranges such as "4XX", or "default".
func Doc(fragment map[string]any) Strategy {
	return strategyFunc(func(r *recorder) error {
		return r.record(nsDoc, fragment)
	})
}

// Describe attaches the endpoint's free text. Text before the docstring
// delimiter line is documented; its first paragraph becomes the summary.
func Describe(text string) Strategy {
	return strategyFunc(func(r *recorder) error {
		return r.record(nsDescribe, text)
	})
}
