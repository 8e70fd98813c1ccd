package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"slices"
)

// endpoint is one method of one route, bound to an API at registration.
type endpoint struct {
	api        *API
	blueprint  *Blueprint
	route      *Route
	method     string
	handler    HandlerFunc
	meta       *endpointMeta
	name       string
	pattern    parsedPattern
	policies   []UnknownPolicy
	pagination *paginationSpec
}

// resolve applies the API configuration to the endpoint's metadata.
func (ep *endpoint) resolve(cfg *settings) {
	ep.policies = make([]UnknownPolicy, len(ep.meta.arguments))
	for i, arg := range ep.meta.arguments {
		policy := arg.unknown
		if policy == UnknownDefault {
			policy = cfg.unknown[arg.location]
		}
		ep.policies[i] = policy
	}

	if p := ep.meta.pagination; p != nil {
		resolved := *p
		if resolved.page == 0 {
			resolved.page = cfg.DefaultPage
		}
		if resolved.pageSize == 0 {
			resolved.pageSize = cfg.DefaultPageSize
		}
		if resolved.maxPageSize == 0 {
			resolved.maxPageSize = max(cfg.MaxPageSize, resolved.pageSize)
		}
		ep.pagination = &resolved
	}
}

func (ep *endpoint) etagEnabled() bool {
	return ep.meta.etag != nil && !ep.api.cfg.ETagDisabled
}

// matchPath applies the runtime matchers of typed placeholders.
func (ep *endpoint) matchPath(r *http.Request) bool {
	for _, ph := range ep.pattern.placeholders {
		c, ok := ep.api.converters[ph.converter]
		if !ok || c.Match == nil {
			continue
		}
		if !c.Match(r.PathValue(ph.name)) {
			return false
		}
	}
	return true
}

// ServeHTTP runs the endpoint pipeline: precondition, arguments,
// pagination parameters, handler, pager, pagination header, serialization
// and cache validation. The first failing step ends the request with an
// error response.
func (ep *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a := ep.api
	if !ep.matchPath(r) {
		a.writeError(w, r, ep, Error(http.StatusNotFound, http.StatusText(http.StatusNotFound)))
		return
	}
	if ep.route.bodyLimit > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, ep.route.bodyLimit)
	}

	call := &Call{endpoint: ep, header: make(http.Header)}
	r = SetValue(r, call)
	call.request = r

	status, header, body, err := ep.run(call)
	if err != nil {
		a.writeError(w, r, ep, withNotModifiedHeader(err, call.header))
		return
	}
	if p, ok := body.(passthrough); ok {
		p.ServeHTTP(w, r)
		return
	}
	a.writeBody(w, r, ep, status, header, body)
}

// passthrough marks a handler result that is a complete response.
type passthrough struct{ http.Handler }

func (ep *endpoint) run(call *Call) (int, http.Header, any, error) {
	r := call.request

	if ep.etagEnabled() {
		call.etag = &etagState{request: r}
		if err := checkPrecondition(r); err != nil {
			return 0, nil, nil, err
		}
	}

	if err := ep.inject(call); err != nil {
		return 0, nil, nil, err
	}

	if ep.pagination != nil {
		params, err := parsePagination(r, ep.pagination, ep.api.cfg.PageSizePolicy)
		if err != nil {
			return 0, nil, nil, err
		}
		call.pagination = params
	}

	result, err := ep.handler(r.Context(), call)
	if err != nil {
		return 0, nil, nil, err
	}
	if h, ok := result.(http.Handler); ok {
		return 0, nil, passthrough{h}, nil
	}

	status, header, data := ep.unpack(call, result)

	if ep.pagination != nil {
		if pager := ep.pagination.pager; pager != nil {
			if data, err = pager.Page(call.pagination, data); err != nil {
				return 0, nil, nil, err
			}
		}
		ep.setPaginationHeader(call, header)
	}

	body := data
	if resp := ep.meta.response; resp != nil && resp.schema != nil {
		if body, err = resp.schema.Serialize(data); err != nil {
			return 0, nil, nil, err
		}
	}

	if call.etag != nil {
		if err := ep.finishETag(call, header, data, body); err != nil {
			return 0, nil, nil, err
		}
	}
	return status, header, body, nil
}

// inject loads every argument in declaration order.
func (ep *endpoint) inject(call *Call) error {
	for i, arg := range ep.meta.arguments {
		v, err := loadArgument(call.request, arg, ep.policies[i])
		if err != nil {
			var verr *ValidationError
			if arg.errorStatus != 0 && errors.As(err, &verr) {
				verr.Status = arg.errorStatus
			}
			return err
		}
		if !arg.asKwargs {
			call.args = append(call.args, v)
			continue
		}
		if call.kwargs == nil {
			call.kwargs = make(map[string]any)
		}
		rv := reflect.Indirect(reflect.ValueOf(v))
		if !rv.IsValid() {
			continue
		}
		for _, f := range wireFields(rv.Type()) {
			call.kwargs[jsonFieldName(f)] = rv.FieldByIndex(f.Index).Interface()
		}
	}
	return nil
}

// unpack reads the status and headers of a Reply and picks the default
// status otherwise.
func (ep *endpoint) unpack(call *Call, result any) (int, http.Header, any) {
	header := call.header.Clone()
	status := http.StatusOK
	if resp := ep.meta.response; resp != nil {
		status = resp.status
	}

	var reply *Reply
	switch v := result.(type) {
	case Reply:
		reply = &v
	case *Reply:
		reply = v
	}
	if reply == nil {
		if result == nil && ep.meta.response == nil {
			status = http.StatusNoContent
		}
		return status, header, result
	}

	if reply.Status != 0 {
		status = reply.Status
	}
	for k, vs := range reply.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if reply.Data == nil && ep.meta.response == nil && reply.Status == 0 {
		status = http.StatusNoContent
	}
	return status, header, reply.Data
}

func (ep *endpoint) setPaginationHeader(call *Call, header http.Header) {
	name := ep.api.cfg.paginationName
	if name == "" {
		return
	}
	p := call.pagination
	total, ok := p.ItemCount()
	if !ok {
		ep.api.diag(ep, "item_count_unset", "item count not set in paginated endpoint, pagination header skipped")
		return
	}
	raw, err := json.Marshal(NewPaginationMetadata(p.Page, p.PageSize, total))
	if err != nil {
		return
	}
	header.Set(name, string(raw))
}

func (ep *endpoint) finishETag(call *Call, header http.Header, data, body any) error {
	r := call.request
	if slices.Contains(methodsNeedingCheck, r.Method) && !call.etag.checked {
		ep.api.diag(ep, "etag_not_checked", "ETag not checked in endpoint")
		if ep.api.cfg.ETagStrict {
			return ErrETagNotChecked
		}
	}
	if !slices.Contains(methodsAllowingSet, r.Method) {
		return nil
	}

	token := call.etag.token
	if token == "" {
		etagData := body
		if schema := ep.meta.etag.schema; schema != nil {
			var err error
			if etagData, err = schema.Serialize(data); err != nil {
				return err
			}
		}
		var err error
		token, err = computeETag(etagData, includeHeaders(header, ep.api.etagHeaders()))
		if err != nil {
			return err
		}
	}
	if err := call.etag.notModified(token); err != nil {
		return withNotModifiedHeader(err, header)
	}
	header.Set("ETag", quoteETag(token))
	return nil
}

// withNotModifiedHeader returns a 304 error carrying the response headers
// in h that it does not already set. Other errors are returned as is.
func withNotModifiedHeader(err error, h http.Header) error {
	var herr *HTTPError
	if len(h) == 0 || !errors.As(err, &herr) || herr.Status != http.StatusNotModified {
		return err
	}
	out := *herr
	out.Header = herr.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header, len(h))
	}
	for k, vs := range h {
		if _, ok := out.Header[k]; !ok {
			out.Header[k] = slices.Clone(vs)
		}
	}
	return &out
}

// writeBody encodes a successful result.
func (a *API) writeBody(w http.ResponseWriter, r *http.Request, ep *endpoint, status int, header http.Header, body any) {
	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	if status == http.StatusNoContent || status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}

	enc := a.encoderFor(r, ep)
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := enc.Encode(w, body); err != nil {
		a.logger.ErrorContext(r.Context(), "encode response", "endpoint", ep.name, "error", err)
	}
}

func (a *API) encoderFor(r *http.Request, ep *endpoint) Encoder {
	if resp := ep.meta.response; resp != nil && resp.contentType != "" {
		if enc, ok := a.codecs.forContentType(resp.contentType); ok {
			return enc
		}
	}
	if enc, ok := a.codecs.negotiate(r.Header.Get("Accept")); ok {
		return enc
	}
	return a.codecs.encoders[0]
}

// writeError writes err with the custom error handler or the default shape.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, ep *endpoint, err error) {
	if status := ErrorStatus(err); status >= http.StatusInternalServerError {
		name := ""
		if ep != nil {
			name = ep.name
		}
		a.logger.ErrorContext(r.Context(), "request failed", "endpoint", name, "status", status, "error", err)
	}
	if a.errorHandler != nil {
		a.errorHandler(w, r, err)
		return
	}
	writeErrorResponse(w, err)
}
