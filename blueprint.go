package rest

import "strings"

// Blueprint groups routes under a URL prefix. Its name tags the
// operations of its routes in the generated document.
type Blueprint struct {
	name        string
	prefix      string
	description string
	middleware  []Middleware
	routes      []*Route
	errs        []error
}

// BlueprintOption configures a Blueprint.
type BlueprintOption func(*Blueprint)

// WithBlueprintDescription documents the blueprint's tag.
func WithBlueprintDescription(d string) BlueprintOption {
	return func(b *Blueprint) {
		b.description = d
	}
}

// WithBlueprintMiddleware wraps every endpoint of the blueprint.
func WithBlueprintMiddleware(mw ...Middleware) BlueprintOption {
	return func(b *Blueprint) {
		b.middleware = append(b.middleware, mw...)
	}
}

// NewBlueprint creates a blueprint serving routes under urlPrefix.
func NewBlueprint(name, urlPrefix string, opts ...BlueprintOption) *Blueprint {
	b := &Blueprint{
		name:   name,
		prefix: strings.TrimSuffix(urlPrefix, "/"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the blueprint name.
func (b *Blueprint) Name() string { return b.name }

// Route declares the resource at pattern, relative to the blueprint prefix.
// Declaring the same pattern again returns the existing route.
func (b *Blueprint) Route(pattern string, opts ...RouteOption) *Route {
	for _, rt := range b.routes {
		if rt.pattern == pattern {
			for _, opt := range opts {
				opt(rt)
			}
			return rt
		}
	}
	rt := &Route{blueprint: b, pattern: pattern}
	for _, opt := range opts {
		opt(rt)
	}
	b.routes = append(b.routes, rt)
	return rt
}
