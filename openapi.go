package rest

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Document is a generated OpenAPI document, in 2.0 or 3.x shape.
type Document struct {
	OpenAPI string
	Swagger string
	Info    Info
	Tags    []Tag
	Paths   *Paths

	// Components is set for 3.x documents.
	Components *Components
	// Definitions and Responses are set for 2.0 documents.
	Definitions map[string]JSONSchema
	Responses   map[string]*ResponseObject

	// Extra holds additional root fields.
	Extra map[string]any
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Tag documents an operation tag.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Components holds the shared objects of a 3.x document.
type Components struct {
	Schemas   map[string]JSONSchema      `json:"schemas,omitempty"`
	Responses map[string]*ResponseObject `json:"responses,omitempty"`
	Headers   map[string]*Header         `json:"headers,omitempty"`
}

// Paths maps documented paths to path items in registration order.
type Paths struct {
	m *orderedmap.OrderedMap
}

// NewPaths returns an empty Paths.
func NewPaths() *Paths {
	return &Paths{m: orderedmap.New()}
}

// Set stores item under path, keeping the position of an existing path.
func (p *Paths) Set(path string, item *PathItem) { p.m.Set(path, item) }

// Get returns the item of path.
func (p *Paths) Get(path string) (*PathItem, bool) {
	v, ok := p.m.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*PathItem), true
}

// Keys returns the paths in order.
func (p *Paths) Keys() []string { return p.m.Keys() }

// MarshalJSON encodes the paths in order.
func (p *Paths) MarshalJSON() ([]byte, error) { return p.m.MarshalJSON() }

// PathItem holds the operations of one path. Field order is the canonical
// method order.
type PathItem struct {
	Parameters []Parameter `json:"parameters,omitempty"`
	Options    *Operation  `json:"options,omitempty"`
	Head       *Operation  `json:"head,omitempty"`
	Get        *Operation  `json:"get,omitempty"`
	Post       *Operation  `json:"post,omitempty"`
	Put        *Operation  `json:"put,omitempty"`
	Patch      *Operation  `json:"patch,omitempty"`
	Delete     *Operation  `json:"delete,omitempty"`
}

// Operation returns the operation of method.
func (p *PathItem) Operation(method string) *Operation {
	switch strings.ToUpper(method) {
	case "OPTIONS":
		return p.Options
	case "HEAD":
		return p.Head
	case "GET":
		return p.Get
	case "POST":
		return p.Post
	case "PUT":
		return p.Put
	case "PATCH":
		return p.Patch
	case "DELETE":
		return p.Delete
	default:
		return nil
	}
}

func (p *PathItem) setOperation(method string, op *Operation) {
	switch strings.ToUpper(method) {
	case "OPTIONS":
		p.Options = op
	case "HEAD":
		p.Head = op
	case "GET":
		p.Get = op
	case "POST":
		p.Post = op
	case "PUT":
		p.Put = op
	case "PATCH":
		p.Patch = op
	case "DELETE":
		p.Delete = op
	}
}

// Operation describes one method of one path.
type Operation struct {
	Tags        []string                   `json:"tags,omitempty"`
	Summary     string                     `json:"summary,omitempty"`
	Description string                     `json:"description,omitempty"`
	OperationID string                     `json:"operationId,omitempty"`
	Consumes    []string                   `json:"consumes,omitempty"`
	Produces    []string                   `json:"produces,omitempty"`
	Parameters  []Parameter                `json:"parameters,omitempty"`
	RequestBody *RequestBody               `json:"requestBody,omitempty"`
	Responses   map[string]*ResponseObject `json:"responses"`
	Deprecated  bool                       `json:"deprecated,omitempty"`

	// Extra holds fields with no dedicated member, such as security or
	// x- extensions added by Doc.
	Extra map[string]any `json:"-"`
}

type operationAlias Operation

// MarshalJSON encodes the operation with its extra fields.
func (o *Operation) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal((*operationAlias)(o))
	if err != nil || len(o.Extra) == 0 {
		return raw, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range o.Extra {
		if _, known := m[k]; !known {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an operation, keeping unknown fields in Extra.
func (o *Operation) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*operationAlias)(o)); err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for _, name := range operationFields() {
		delete(m, name)
	}
	if len(m) > 0 {
		o.Extra = m
	} else {
		o.Extra = nil
	}
	return nil
}

// operationFields returns the json names of the Operation members.
func operationFields() []string {
	t := reflect.TypeFor[Operation]()
	var names []string
	for i := range t.NumField() {
		if name := jsonFieldName(t.Field(i)); name != "-" {
			names = append(names, name)
		}
	}
	return names
}

// Parameter describes a single operation parameter. 2.0 documents carry
// the type of non-body parameters inline instead of a schema.
type Parameter struct {
	Name        string      `json:"name"`
	In          string      `json:"in"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Schema      *JSONSchema `json:"schema,omitempty"`
	Example     any         `json:"example,omitempty"`

	Type             string      `json:"type,omitempty"`
	Format           string      `json:"format,omitempty"`
	Items            *JSONSchema `json:"items,omitempty"`
	CollectionFormat string      `json:"collectionFormat,omitempty"`
	Default          any         `json:"default,omitempty"`
	Enum             []string    `json:"enum,omitempty"`
	Minimum          *float64    `json:"minimum,omitempty"`
	Maximum          *float64    `json:"maximum,omitempty"`
}

// RequestBody describes the request body of a 3.x operation.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// MediaType is a media type object with an optional schema.
type MediaType struct {
	Schema  *JSONSchema `json:"schema,omitempty"`
	Example any         `json:"example,omitempty"`
}

// ResponseObject describes a single response, or references a shared one.
type ResponseObject struct {
	Ref         string               `json:"$ref,omitempty"`
	Description string               `json:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
	Schema      *JSONSchema          `json:"schema,omitempty"`
	Examples    map[string]any       `json:"examples,omitempty"`
	Headers     map[string]*Header   `json:"headers,omitempty"`
}

type responseAlias ResponseObject

// MarshalJSON encodes references without sibling fields.
func (r *ResponseObject) MarshalJSON() ([]byte, error) {
	if r.Ref != "" {
		return json.Marshal(map[string]string{"$ref": r.Ref})
	}
	return json.Marshal((*responseAlias)(r))
}

// Header describes a response header, or references a shared one.
type Header struct {
	Ref         string      `json:"$ref,omitempty"`
	Description string      `json:"description,omitempty"`
	Schema      *JSONSchema `json:"schema,omitempty"`
	Type        string      `json:"type,omitempty"`
	Format      string      `json:"format,omitempty"`
}

type headerAlias Header

// MarshalJSON encodes references without sibling fields.
func (h *Header) MarshalJSON() ([]byte, error) {
	if h.Ref != "" {
		return json.Marshal(map[string]string{"$ref": h.Ref})
	}
	return json.Marshal((*headerAlias)(h))
}

// Operations calls fn for every operation in document order.
func (d *Document) Operations(fn func(path, method string, op *Operation)) {
	for _, path := range d.Paths.Keys() {
		item, _ := d.Paths.Get(path)
		for _, m := range canonicalMethods {
			if op := item.Operation(m); op != nil {
				fn(path, m, op)
			}
		}
	}
}

// MarshalJSON encodes the document with its root fields in a fixed order
// and the extra root fields merged in.
func (d *Document) MarshalJSON() ([]byte, error) {
	root := orderedmap.New()
	if d.Swagger != "" {
		root.Set("swagger", d.Swagger)
	} else {
		root.Set("openapi", d.OpenAPI)
	}

	info, err := mergeTyped(d.Info, d.Extra["info"])
	if err != nil {
		return nil, err
	}
	root.Set("info", info)

	extraKeys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		switch k {
		case "openapi", "swagger", "info", "paths", "tags", "components", "definitions", "responses":
		default:
			extraKeys = append(extraKeys, k)
		}
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		root.Set(k, d.Extra[k])
	}

	if len(d.Tags) > 0 || d.Extra["tags"] != nil {
		if extra, ok := d.Extra["tags"]; ok {
			root.Set("tags", extra)
		} else {
			root.Set("tags", d.Tags)
		}
	}
	paths := d.Paths
	if paths == nil {
		paths = NewPaths()
	}
	root.Set("paths", paths)

	if d.Components != nil {
		components, err := mergeTyped(d.Components, d.Extra["components"])
		if err != nil {
			return nil, err
		}
		root.Set("components", components)
	}
	if len(d.Definitions) > 0 {
		definitions, err := mergeTyped(d.Definitions, d.Extra["definitions"])
		if err != nil {
			return nil, err
		}
		root.Set("definitions", definitions)
	}
	if len(d.Responses) > 0 {
		responses, err := mergeTyped(d.Responses, d.Extra["responses"])
		if err != nil {
			return nil, err
		}
		root.Set("responses", responses)
	}
	return root.MarshalJSON()
}

// mergeTyped deep-merges extra into the JSON form of v.
func mergeTyped(v any, extra any) (any, error) {
	overrides, ok := extra.(map[string]any)
	if !ok || len(overrides) == 0 {
		return v, nil
	}
	base, err := toMap(v)
	if err != nil {
		return nil, err
	}
	return deepMerge(base, overrides), nil
}
