package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
)

// Names of the objects every document shares.
const (
	errorSchemaName      = "Error"
	paginationSchemaName = "PaginationMetadata"
	paginationHeaderName = "PAGINATION"
	defaultErrorName     = "DEFAULT_ERROR"
)

// Spec returns the OpenAPI document of every registered blueprint. The
// document is built once and cached until the next Register.
func (a *API) Spec() (*Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.spec == nil {
		doc, err := a.buildSpec()
		if err != nil {
			return nil, err
		}
		a.spec = doc
	}
	return a.spec, nil
}

// WriteSpec writes the document as indented JSON.
func (a *API) WriteSpec(w io.Writer) error {
	doc, err := a.Spec()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode openapi document: %w", err)
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// WriteSpecYAML writes the document as YAML.
func (a *API) WriteSpecYAML(w io.Writer) error {
	doc, err := a.Spec()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode openapi document: %w", err)
	}
	return writeJSONAsYAML(w, raw)
}

// docBuilder holds the state of one document build.
type docBuilder struct {
	api     *API
	oas2    bool
	schemas *schemaBuilder
	// responses collects the component responses referenced so far.
	responses map[string]int
}

func (a *API) buildSpec() (*Document, error) {
	oas2 := a.cfg.oas2
	refPrefix := "#/components/schemas/"
	if oas2 {
		refPrefix = "#/definitions/"
	}

	// First pass: find the types shared by several operations.
	usage := newSchemaUsage(a.fieldTypes)
	for _, reg := range a.registrations {
		for _, ep := range reg.endpoints {
			if err := checkPlaceholders(ep.name, ep.pattern, a.converters); err != nil {
				return nil, err
			}
			ep.collectSchemas(usage, oas2)
		}
	}
	refs, err := usage.shared(map[reflect.Type]string{
		reflect.TypeFor[ErrorBody]():          errorSchemaName,
		reflect.TypeFor[PaginationMetadata](): paginationSchemaName,
	})
	if err != nil {
		return nil, err
	}

	// Second pass: render every operation.
	d := &docBuilder{
		api:       a,
		oas2:      oas2,
		schemas:   newSchemaBuilder(refPrefix, a.fieldTypes, refs),
		responses: make(map[string]int),
	}
	doc := &Document{
		Info:  Info{Title: a.cfg.Title, Version: a.cfg.Version},
		Paths: NewPaths(),
		Extra: a.specOptions,
	}
	if oas2 {
		doc.Swagger = "2.0"
	} else {
		doc.OpenAPI = a.cfg.OpenAPIVersion
	}

	for _, reg := range a.registrations {
		bp := reg.blueprint
		doc.Tags = append(doc.Tags, Tag{Name: bp.name, Description: bp.description})
		for _, ep := range reg.endpoints {
			item, ok := doc.Paths.Get(ep.pattern.doc)
			if !ok {
				item = &PathItem{Parameters: d.pathParameters(ep)}
				doc.Paths.Set(ep.pattern.doc, item)
			}
			op, err := d.operation(ep)
			if err != nil {
				return nil, err
			}
			item.setOperation(ep.method, op)
		}
	}

	schemas := d.schemas.components()
	responses := d.componentResponses()
	if oas2 {
		doc.Definitions = schemas
		doc.Responses = responses
		return doc, nil
	}
	doc.Components = &Components{Schemas: schemas, Responses: responses}
	if a.cfg.paginationName != "" && d.paginated() {
		doc.Components.Headers = map[string]*Header{
			paginationHeaderName: {
				Description: "Pagination metadata",
				Schema:      &JSONSchema{Ref: refPrefix + paginationSchemaName},
			},
		}
	}
	return doc, nil
}

// collectSchemas records the types documented by the endpoint, the way
// operation renders them.
func (ep *endpoint) collectSchemas(u *schemaUsage, oas2 bool) {
	for _, arg := range ep.meta.arguments {
		switch {
		case arg.location == LocationJSON, arg.location.BodyBearing() && !oas2:
			u.addSchema(ep.name, arg.schema)
		default:
			u.addFields(ep.name, arg.schema.typ)
		}
	}
	if r := ep.meta.response; r != nil && r.schema != nil {
		u.addSchema(ep.name, r.schema)
	}
	for _, alt := range ep.meta.altResponses {
		if alt.schema != nil && alt.ref == "" {
			u.addSchema(ep.name, alt.schema)
		}
	}
}

func (d *docBuilder) paginated() bool {
	for _, reg := range d.api.registrations {
		for _, ep := range reg.endpoints {
			if ep.pagination != nil {
				return true
			}
		}
	}
	return false
}

// pathParameters documents the placeholders of the endpoint's pattern
// followed by the route's own parameters.
func (d *docBuilder) pathParameters(ep *endpoint) []Parameter {
	var params []Parameter
	for _, ph := range ep.pattern.placeholders {
		c := d.api.converters[ph.converter]
		p := Parameter{Name: ph.name, In: "path", Required: true}
		if d.oas2 {
			p.Type, p.Format = c.Type, c.Format
		} else {
			p.Schema = &JSONSchema{Type: c.Type, Format: c.Format}
		}
		params = append(params, p)
	}
	return append(params, ep.route.parameters...)
}

// operation renders the operation of one endpoint.
func (d *docBuilder) operation(ep *endpoint) (*Operation, error) {
	meta := ep.meta
	op := &Operation{
		Tags:       ep.route.tags,
		Responses:  make(map[string]*ResponseObject),
		Deprecated: ep.route.deprecated,
	}
	if len(op.Tags) == 0 {
		op.Tags = []string{ep.blueprint.name}
	}
	op.Summary, op.Description = splitDocstring(meta.description, d.api.cfg.DocstringDelimiter)

	for _, arg := range meta.arguments {
		if arg.location.BodyBearing() {
			d.body(op, arg)
			continue
		}
		op.Parameters = append(op.Parameters, d.flatParameters(arg.schema.typ, arg.location)...)
	}
	if ep.pagination != nil {
		op.Parameters = append(op.Parameters, d.paginationParameters(ep.pagination)...)
	}

	if rs := meta.response; rs != nil {
		resp := d.response(op, rs)
		if ep.pagination != nil && d.api.cfg.paginationName != "" {
			if resp.Headers == nil {
				resp.Headers = make(map[string]*Header)
			}
			resp.Headers[d.api.cfg.paginationName] = d.paginationHeader()
		}
		op.Responses[strconv.Itoa(rs.status)] = resp
		op.Responses["default"] = d.componentRef(defaultErrorName, 0)
	}
	for _, alt := range meta.altResponses {
		key := strconv.Itoa(alt.status)
		if alt.ref != "" {
			op.Responses[key] = d.componentRef(alt.ref, -1)
			continue
		}
		op.Responses[key] = d.response(op, alt)
	}

	if len(meta.arguments) > 0 || ep.pagination != nil {
		d.synthesize(op, http.StatusUnprocessableEntity)
	}
	if ep.etagEnabled() {
		switch ep.method {
		case http.MethodGet, http.MethodHead:
			d.synthesize(op, http.StatusNotModified)
		case http.MethodPut, http.MethodPatch, http.MethodDelete:
			d.synthesize(op, http.StatusPreconditionFailed)
			d.synthesize(op, http.StatusPreconditionRequired)
		}
	}

	if len(meta.docs) == 0 {
		return op, nil
	}
	return mergeDocs(ep.name, op, meta.docs)
}

// synthesize documents an error response unless the endpoint already
// documents that status.
func (d *docBuilder) synthesize(op *Operation, status int) {
	key := strconv.Itoa(status)
	if _, ok := op.Responses[key]; ok {
		return
	}
	op.Responses[key] = d.componentRef(statusName(status), status)
}

// componentRef references the component response name. A status of -1
// marks a user-defined component that is not generated.
func (d *docBuilder) componentRef(name string, status int) *ResponseObject {
	if status >= 0 {
		d.responses[name] = status
	}
	prefix := "#/components/responses/"
	if d.oas2 {
		prefix = "#/responses/"
	}
	return &ResponseObject{Ref: prefix + name}
}

// componentResponses renders the referenced error responses.
func (d *docBuilder) componentResponses() map[string]*ResponseObject {
	if len(d.responses) == 0 {
		return nil
	}
	errSchema := &JSONSchema{Ref: d.schemas.refPrefix + errorSchemaName}
	out := make(map[string]*ResponseObject, len(d.responses))
	for name, status := range d.responses {
		resp := &ResponseObject{Description: http.StatusText(status)}
		if status == 0 {
			resp.Description = "Default error response"
		}
		if status != http.StatusNotModified {
			if d.oas2 {
				resp.Schema = errSchema
			} else {
				resp.Content = map[string]MediaType{"application/json": {Schema: errSchema}}
			}
		}
		out[name] = resp
	}
	return out
}

// response documents a Response or AltResponse strategy.
func (d *docBuilder) response(op *Operation, rs *responseSpec) *ResponseObject {
	resp := &ResponseObject{Description: rs.description}
	if resp.Description == "" {
		resp.Description = http.StatusText(rs.status)
	}
	for name, h := range rs.headers {
		if resp.Headers == nil {
			resp.Headers = make(map[string]*Header, len(rs.headers))
		}
		resp.Headers[name] = &h
	}
	if rs.schema == nil {
		return resp
	}

	ct := rs.contentType
	if ct == "" {
		ct = "application/json"
	}
	schema := d.schemas.forSchema(rs.schema)
	if d.oas2 {
		resp.Schema = &schema
		if rs.example != nil {
			resp.Examples = map[string]any{ct: rs.example}
		}
		if ct != "application/json" {
			op.Produces = appendUnique(op.Produces, ct)
		}
		return resp
	}
	resp.Content = map[string]MediaType{ct: {Schema: &schema, Example: rs.example}}
	return resp
}

// body documents a json, form or files argument.
func (d *docBuilder) body(op *Operation, arg *argument) {
	ct := arg.contentType
	if ct == "" {
		ct = d.api.cfg.contentTypes[arg.location]
	}

	if !d.oas2 {
		schema := d.schemas.forSchema(arg.schema)
		op.RequestBody = &RequestBody{
			Description: arg.description,
			Required:    arg.required,
			Content:     map[string]MediaType{ct: {Schema: &schema, Example: arg.example}},
		}
		return
	}

	if ct != "application/json" {
		op.Consumes = appendUnique(op.Consumes, ct)
	}
	if arg.location == LocationJSON {
		schema := d.schemas.forSchema(arg.schema)
		op.Parameters = append(op.Parameters, Parameter{
			Name:        "body",
			In:          "body",
			Description: arg.description,
			Required:    arg.required,
			Schema:      &schema,
		})
		return
	}
	op.Parameters = append(op.Parameters, d.flatParameters(arg.schema.typ, arg.location)...)
}

// flatParameters explodes the fields of t into one parameter each.
func (d *docBuilder) flatParameters(t reflect.Type, loc Location) []Parameter {
	// 2.0 has no cookie parameters.
	if d.oas2 && loc == LocationCookies {
		return nil
	}

	var params []Parameter
	for _, f := range wireFields(t) {
		s := d.schemas.fieldSchema(f)
		p := Parameter{
			Name:        jsonFieldName(f),
			In:          loc.openAPIIn(),
			Description: s.Description,
			Required:    isRequired(f) || loc == LocationPath,
		}
		s.Description = ""
		if !d.oas2 {
			p.Schema = &s
			params = append(params, p)
			continue
		}

		if isUploadType(f.Type) {
			p.Type = "file"
		} else {
			inlineParameter(&p, s)
		}
		params = append(params, p)
	}
	return params
}

// inlineParameter copies a schema into the inline fields of a 2.0 parameter.
func inlineParameter(p *Parameter, s JSONSchema) {
	switch {
	case s.Type == "array":
		p.Type = "array"
		p.Items = s.Items
		p.CollectionFormat = "multi"
	case s.Type == "" || s.Type == "object":
		p.Type = "string"
	default:
		p.Type = s.Type
		p.Format = s.Format
	}
	p.Default = s.Default
	p.Enum = s.Enum
	p.Minimum = s.Minimum
	p.Maximum = s.Maximum
}

// paginationParameters documents the page and page_size query parameters.
func (d *docBuilder) paginationParameters(spec *paginationSpec) []Parameter {
	one := 1.0
	maxSize := float64(spec.maxPageSize)
	page := JSONSchema{Type: "integer", Default: spec.page, Minimum: &one}
	size := JSONSchema{Type: "integer", Default: spec.pageSize, Minimum: &one, Maximum: &maxSize}

	params := []Parameter{
		{Name: "page", In: "query"},
		{Name: "page_size", In: "query"},
	}
	for i, s := range []JSONSchema{page, size} {
		if d.oas2 {
			inlineParameter(&params[i], s)
		} else {
			params[i].Schema = &s
		}
	}
	return params
}

// paginationHeader documents the pagination metadata header.
func (d *docBuilder) paginationHeader() *Header {
	if d.oas2 {
		return &Header{Description: "Pagination metadata", Type: "string"}
	}
	return &Header{Ref: "#/components/headers/" + paginationHeaderName}
}

// mergeDocs deep-merges the Doc fragments of an endpoint into op.
func mergeDocs(endpoint string, op *Operation, docs []map[string]any) (*Operation, error) {
	merged, err := toMap(op)
	if err != nil {
		return nil, configErrorf(endpoint, "document operation: %v", err)
	}
	for _, fragment := range docs {
		f, err := toMap(fragment)
		if err != nil {
			return nil, configErrorf(endpoint, "doc fragment: %v", err)
		}
		if responses, ok := f["responses"].(map[string]any); ok {
			canon, err := canonResponses(responses)
			if err != nil {
				return nil, configErrorf(endpoint, "doc fragment: %v", err)
			}
			f["responses"] = canon
		}
		merged = deepMerge(merged, f)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, configErrorf(endpoint, "doc fragment: %v", err)
	}
	out := &Operation{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, configErrorf(endpoint, "doc fragment: %v", err)
	}
	return out, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
