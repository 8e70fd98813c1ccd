package rest

import (
	"errors"
	"reflect"
)

type namespace string

const (
	nsArguments   namespace = "arguments"
	nsAltResponse namespace = "alt_response"
	nsDoc         namespace = "doc"
	nsResponse    namespace = "response"
	nsPagination  namespace = "pagination"
	nsETag        namespace = "etag"
	nsDescribe    namespace = "describe"
)

// stackable namespaces collect every fragment in order; the others accept
// a single fragment.
func (ns namespace) stackable() bool {
	return ns == nsArguments || ns == nsAltResponse || ns == nsDoc
}

// endpointMeta is the metadata of one endpoint. It is built once by a
// recorder at registration and read-only afterwards.
type endpointMeta struct {
	arguments    []*argument
	altResponses []*responseSpec
	docs         []map[string]any
	response     *responseSpec
	pagination   *paginationSpec
	etag         *etagSpec
	description  string
}

// recorder collects the fragments of an endpoint's strategies.
type recorder struct {
	endpoint string
	meta     endpointMeta
	single   map[namespace]any
	warnings []string
}

func newRecorder(endpoint string) *recorder {
	return &recorder{endpoint: endpoint, single: make(map[namespace]any)}
}

// record stores fragment under ns. Stackable namespaces append. A second
// identical fragment in a single-instance namespace is kept with a
// warning; a conflicting one is a configuration error.
func (r *recorder) record(ns namespace, fragment any) error {
	if ns.stackable() {
		switch f := fragment.(type) {
		case *argument:
			r.meta.arguments = append(r.meta.arguments, f)
		case *responseSpec:
			r.meta.altResponses = append(r.meta.altResponses, f)
		case map[string]any:
			r.meta.docs = append(r.meta.docs, f)
		}
		return nil
	}

	if prev, ok := r.single[ns]; ok {
		if !reflect.DeepEqual(prev, fragment) {
			return configErrorf(r.endpoint, "conflicting %s annotations", ns)
		}
		r.warnings = append(r.warnings, string(ns)+" annotation repeated")
		return nil
	}
	r.single[ns] = fragment

	switch f := fragment.(type) {
	case *responseSpec:
		r.meta.response = f
	case *paginationSpec:
		r.meta.pagination = f
	case *etagSpec:
		r.meta.etag = f
	case string:
		r.meta.description = f
	}
	return nil
}

// apply records every strategy and validates the result.
func (r *recorder) apply(strategies []Strategy) (*endpointMeta, error) {
	var errs []error
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if err := s.record(r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		errs = append(errs, r.validate()...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	meta := r.meta
	return &meta, nil
}

// validate checks combinations that only make sense once every fragment
// is known.
func (r *recorder) validate() []error {
	var errs []error
	var body *argument
	kwargs := make(map[string]bool)

	for _, arg := range r.meta.arguments {
		if arg.schema == nil {
			errs = append(errs, configErrorf(r.endpoint, "%s argument has no schema", arg.location))
			continue
		}
		if !arg.location.Valid() {
			errs = append(errs, configErrorf(r.endpoint, "unknown location %q", arg.location))
			continue
		}

		if arg.location.BodyBearing() {
			if body != nil {
				errs = append(errs, configErrorf(r.endpoint,
					"only one body argument is allowed, got %s and %s", body.location, arg.location))
			}
			body = arg
		}
		if arg.location != LocationJSON {
			if arg.schema.many {
				errs = append(errs, configErrorf(r.endpoint, "%s argument cannot be a collection", arg.location))
			}
			if arg.schema.typ.Kind() != reflect.Struct {
				errs = append(errs, configErrorf(r.endpoint, "%s argument must be a struct, got %s",
					arg.location, arg.schema.typ))
			}
		}

		if arg.asKwargs {
			if arg.schema.many || derefType(arg.schema.typ).Kind() != reflect.Struct {
				errs = append(errs, configErrorf(r.endpoint, "%s argument cannot be spread as keywords", arg.location))
				continue
			}
			for name := range fieldNames(arg.schema.typ) {
				if kwargs[name] {
					errs = append(errs, configErrorf(r.endpoint, "keyword %q injected twice", name))
				}
				kwargs[name] = true
			}
		}
	}

	if r.meta.pagination != nil && body != nil && !body.schema.many {
		fields := fieldNames(body.schema.typ)
		for _, name := range []string{"page", "page_size"} {
			if _, clash := fields[name]; clash {
				errs = append(errs, configErrorf(r.endpoint,
					"pagination parameter %q is also declared by the %s argument", name, body.location))
			}
		}
	}

	if p := r.meta.pagination; p != nil {
		if p.page < 0 || p.pageSize < 0 || p.maxPageSize < 0 {
			errs = append(errs, configErrorf(r.endpoint, "negative pagination setting"))
		}
	}

	if resp := r.meta.response; resp != nil && (resp.status < 100 || resp.status > 599) {
		errs = append(errs, configErrorf(r.endpoint, "invalid response status %d", resp.status))
	}
	for _, alt := range r.meta.altResponses {
		if alt.status < 100 || alt.status > 599 {
			errs = append(errs, configErrorf(r.endpoint, "invalid alternate response status %d", alt.status))
		}
	}
	return errs
}
