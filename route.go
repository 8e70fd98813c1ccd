package rest

import (
	"net/http"
	"strings"
)

// Route is one resource path of a blueprint. Handlers are attached per
// method with Handle or the method helpers.
type Route struct {
	blueprint  *Blueprint
	pattern    string
	tags       []string
	parameters []Parameter
	bodyLimit  int64
	deprecated bool
	handlers   []*routeHandler
}

// routeHandler is a handler declared on a route with its recorded metadata.
type routeHandler struct {
	method  string
	handler HandlerFunc
	meta    *endpointMeta
	notes   []string
}

// RouteOption configures a route.
type RouteOption func(*Route)

// RouteTags replaces the blueprint name as the documented tags of the route.
func RouteTags(tags ...string) RouteOption {
	return func(rt *Route) {
		rt.tags = append(rt.tags, tags...)
	}
}

// RouteParameters documents parameters shared by every method of the route.
func RouteParameters(params ...Parameter) RouteOption {
	return func(rt *Route) {
		rt.parameters = append(rt.parameters, params...)
	}
}

// RouteBodyLimit sets the maximum request body size in bytes.
func RouteBodyLimit(maxBytes int64) RouteOption {
	return func(rt *Route) {
		rt.bodyLimit = maxBytes
	}
}

// RouteDeprecated marks every operation of the route as deprecated.
func RouteDeprecated() RouteOption {
	return func(rt *Route) {
		rt.deprecated = true
	}
}

// Path returns the full route pattern including the blueprint prefix.
func (rt *Route) Path() string {
	return rt.blueprint.prefix + rt.pattern
}

// Handle attaches h to method. The strategies are recorded immediately;
// configuration errors surface when the blueprint is registered.
func (rt *Route) Handle(method string, h HandlerFunc, strategies ...Strategy) *Route {
	method = strings.ToUpper(method)
	name := method + " " + rt.Path()

	if h == nil {
		rt.blueprint.errs = append(rt.blueprint.errs, configErrorf(name, "nil handler"))
		return rt
	}
	if !isCanonicalMethod(method) {
		rt.blueprint.errs = append(rt.blueprint.errs, configErrorf(name, "unsupported method"))
		return rt
	}
	for _, existing := range rt.handlers {
		if existing.method == method {
			rt.blueprint.errs = append(rt.blueprint.errs, configErrorf(name, "method declared twice"))
			return rt
		}
	}

	rec := newRecorder(name)
	meta, err := rec.apply(strategies)
	if err != nil {
		rt.blueprint.errs = append(rt.blueprint.errs, err)
		return rt
	}
	rt.handlers = append(rt.handlers, &routeHandler{
		method:  method,
		handler: h,
		meta:    meta,
		notes:   rec.warnings,
	})
	return rt
}

// Get attaches a GET handler.
func (rt *Route) Get(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodGet, h, strategies...)
}

// Head attaches a HEAD handler.
func (rt *Route) Head(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodHead, h, strategies...)
}

// Options attaches an OPTIONS handler.
func (rt *Route) Options(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodOptions, h, strategies...)
}

// Post attaches a POST handler.
func (rt *Route) Post(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodPost, h, strategies...)
}

// Put attaches a PUT handler.
func (rt *Route) Put(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodPut, h, strategies...)
}

// Patch attaches a PATCH handler.
func (rt *Route) Patch(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodPatch, h, strategies...)
}

// Delete attaches a DELETE handler.
func (rt *Route) Delete(h HandlerFunc, strategies ...Strategy) *Route {
	return rt.Handle(http.MethodDelete, h, strategies...)
}

// canonicalMethods is the documented method order of a path item.
var canonicalMethods = []string{
	http.MethodOptions,
	http.MethodHead,
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func isCanonicalMethod(method string) bool {
	for _, m := range canonicalMethods {
		if m == method {
			return true
		}
	}
	return false
}

// sortedHandlers returns the route handlers in canonical method order.
func (rt *Route) sortedHandlers() []*routeHandler {
	out := make([]*routeHandler, 0, len(rt.handlers))
	for _, m := range canonicalMethods {
		for _, h := range rt.handlers {
			if h.method == m {
				out = append(out, h)
			}
		}
	}
	return out
}
