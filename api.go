package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// API is the root of a documented HTTP API. It serves the endpoints of
// registered blueprints and generates their OpenAPI document. It
// implements http.Handler.
type API struct {
	config       Config
	cfg          *settings
	logger       *slog.Logger
	converters   map[string]Converter
	fieldTypes   map[reflect.Type]JSONSchema
	userEncoders []Encoder
	codecs       *codecRegistry
	specOptions  map[string]any
	errorHandler ErrorHandler
	middleware   []Middleware

	mux           *http.ServeMux
	registrations []*registration

	mu   sync.Mutex
	spec *Document

	diagnostics sync.Map
}

// registration is a blueprint bound to the API.
type registration struct {
	blueprint *Blueprint
	endpoints []*endpoint
}

// Option configures an API.
type Option func(*API)

// WithConfig replaces the whole configuration. Apply it before the
// options that change single settings.
func WithConfig(cfg Config) Option {
	return func(a *API) {
		a.config = cfg
	}
}

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(a *API) {
		a.config.Title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(a *API) {
		a.config.Version = version
	}
}

// WithOpenAPIVersion selects the document format: "2.0" or a 3.x version.
func WithOpenAPIVersion(version string) Option {
	return func(a *API) {
		a.config.OpenAPIVersion = version
	}
}

// WithURLPrefix serves the document and viewer pages under prefix.
func WithURLPrefix(prefix string) Option {
	return func(a *API) {
		a.config.URLPrefix = prefix
	}
}

// WithLogger sets the logger for diagnostics and failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// WithConverter registers a path placeholder converter, used as {name:conv}.
func WithConverter(name string, c Converter) Option {
	return func(a *API) {
		a.converters[name] = c
	}
}

// WithFieldType documents every field of type T with schema.
func WithFieldType[T any](schema JSONSchema) Option {
	return func(a *API) {
		a.fieldTypes[reflect.TypeFor[T]()] = schema
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) Option {
	return func(a *API) {
		a.userEncoders = append(a.userEncoders, enc)
	}
}

// WithSpecOptions deep-merges extra root fields, such as servers or
// info.description, into the generated document.
func WithSpecOptions(opts map[string]any) Option {
	return func(a *API) {
		a.specOptions = deepMerge(a.specOptions, opts)
	}
}

// WithErrorHandler sets a custom error writer. It receives errors exactly
// as returned by handlers and the pipeline.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *API) {
		a.errorHandler = h
	}
}

// New creates an API. The title and version must be set.
func New(opts ...Option) (*API, error) {
	a := &API{
		config:     DefaultConfig(),
		logger:     slog.Default(),
		converters: defaultConverters(),
		fieldTypes: make(map[reflect.Type]JSONSchema),
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(a)
	}

	cfg, err := resolveConfig(a.config)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.codecs = newCodecRegistry(a.userEncoders)

	if err := a.registerDocRoutes(); err != nil {
		return nil, err
	}
	return a, nil
}

// Use adds middleware to the API. Middleware is applied in the order added.
func (a *API) Use(mw ...Middleware) {
	a.middleware = append(a.middleware, mw...)
}

// Register binds the blueprint's routes. Every configuration error of the
// blueprint is returned, joined.
func (a *API) Register(bp *Blueprint) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, reg := range a.registrations {
		if reg.blueprint == bp || reg.blueprint.name == bp.name {
			return configErrorf("", "blueprint %q registered twice", bp.name)
		}
	}

	errs := slices.Clone(bp.errs)
	reg := &registration{blueprint: bp}
	for _, rt := range bp.routes {
		pattern := parsePattern(rt.Path(), a.converters)
		for _, h := range rt.sortedHandlers() {
			ep := &endpoint{
				api:       a,
				blueprint: bp,
				route:     rt,
				method:    h.method,
				handler:   h.handler,
				meta:      h.meta,
				name:      h.method + " " + rt.Path(),
				pattern:   pattern,
			}
			ep.resolve(a.cfg)
			for _, note := range h.notes {
				a.logger.Warn(note, "endpoint", ep.name)
			}

			var handler http.Handler = ep
			for i := len(bp.middleware) - 1; i >= 0; i-- {
				handler = bp.middleware[i](handler)
			}
			if err := a.handle(h.method+" "+pattern.mux, handler); err != nil {
				errs = append(errs, configErrorf(ep.name, "%v", err))
				continue
			}
			reg.endpoints = append(reg.endpoints, ep)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.registrations = append(a.registrations, reg)
	a.spec = nil
	return nil
}

// handle registers h on the mux, reporting conflicting patterns as errors.
func (a *API) handle(pattern string, h http.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	a.mux.Handle(pattern, h)
	return nil
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(a.mux)
	for i := len(a.middleware) - 1; i >= 0; i-- {
		handler = a.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Config returns the configuration the API was built with.
func (a *API) Config() Config { return a.cfg.Config }

// etagHeaders lists the response headers folded into automatic ETags.
func (a *API) etagHeaders() []string {
	if a.cfg.paginationName == "" {
		return nil
	}
	return []string{a.cfg.paginationName}
}

// diag logs a warning about a misused endpoint, at most once a minute per
// endpoint and kind.
func (a *API) diag(ep *endpoint, kind, msg string) {
	v, _ := a.diagnostics.LoadOrStore(ep.name+"|"+kind, &rate.Sometimes{First: 1, Interval: time.Minute})
	v.(*rate.Sometimes).Do(func() {
		a.logger.Warn(msg, "endpoint", ep.name, "method", ep.method, "kind", kind)
	})
}
