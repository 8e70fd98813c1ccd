package rest

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// JSONSchema is the subset of JSON Schema emitted in generated documents.
type JSONSchema struct {
	Ref         string                `json:"$ref,omitempty"`
	Type        string                `json:"type,omitempty"`
	Format      string                `json:"format,omitempty"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Default     any                   `json:"default,omitempty"`
	Example     any                   `json:"example,omitempty"`
	Pattern     string                `json:"pattern,omitempty"`
	MinLength   *int                  `json:"minLength,omitempty"`
	MaxLength   *int                  `json:"maxLength,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty"`
	Maximum     *float64              `json:"maximum,omitempty"`
	MinItems    *int                  `json:"minItems,omitempty"`
	MaxItems    *int                  `json:"maxItems,omitempty"`

	// AdditionalProperties describes the values of string-keyed maps.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty"`
}

// schemaBuilder converts Go types to JSON Schema. Types listed in refs are
// emitted as references to shared components.
type schemaBuilder struct {
	refPrefix  string
	fieldTypes map[reflect.Type]JSONSchema
	refs       map[reflect.Type]string
	visiting   map[reflect.Type]bool
}

func newSchemaBuilder(refPrefix string, fieldTypes map[reflect.Type]JSONSchema, refs map[reflect.Type]string) *schemaBuilder {
	return &schemaBuilder{
		refPrefix:  refPrefix,
		fieldTypes: fieldTypes,
		refs:       refs,
		visiting:   make(map[reflect.Type]bool),
	}
}

// forSchema returns the document schema of s.
func (b *schemaBuilder) forSchema(s *Schema) JSONSchema {
	item := b.typeSchema(s.typ)
	if s.many {
		return JSONSchema{Type: "array", Items: &item}
	}
	return item
}

// typeSchema returns the schema of t, referencing components where possible.
func (b *schemaBuilder) typeSchema(t reflect.Type) JSONSchema {
	t = derefType(t)
	if name, ok := b.refs[t]; ok {
		return JSONSchema{Ref: b.refPrefix + name}
	}
	return b.define(t)
}

// define returns the full schema of t even when t is a shared component.
func (b *schemaBuilder) define(t reflect.Type) JSONSchema {
	t = derefType(t)
	if s, ok := b.fieldTypes[t]; ok {
		return s
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[FileUpload]():
		return JSONSchema{Type: "string", Format: "binary"}
	case reflect.TypeFor[json.RawMessage]():
		return JSONSchema{}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return JSONSchema{Type: "integer", Format: "int32"}
	case reflect.Int64, reflect.Uint, reflect.Uint64:
		return JSONSchema{Type: "integer", Format: "int64"}
	case reflect.Float32:
		return JSONSchema{Type: "number", Format: "float"}
	case reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := b.typeSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := b.typeSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		values := b.typeSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &values}
	case reflect.Struct:
		if isLeafType(t) {
			return JSONSchema{Type: "string"}
		}
		return b.structSchema(t)
	default:
		return JSONSchema{}
	}
}

func (b *schemaBuilder) structSchema(t reflect.Type) JSONSchema {
	if b.visiting[t] {
		return JSONSchema{Type: "object"}
	}
	b.visiting[t] = true
	defer delete(b.visiting, t)

	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	for _, f := range wireFields(t) {
		name := jsonFieldName(f)
		prop := b.fieldSchema(f)
		schema.Properties[name] = prop
		if isRequired(f) {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// fieldSchema documents one struct field with its tags applied.
func (b *schemaBuilder) fieldSchema(f reflect.StructField) JSONSchema {
	prop := b.typeSchema(f.Type)
	if prop.Ref != "" {
		return prop
	}
	if doc := f.Tag.Get("doc"); doc != "" {
		prop.Description = doc
	}
	if def := f.Tag.Get("default"); def != "" {
		prop.Default = typedDefault(f.Type, def)
	}
	if ex := f.Tag.Get("example"); ex != "" {
		prop.Example = typedDefault(f.Type, ex)
	}
	applyConstraintTags(f, &prop)
	return prop
}

// typedDefault converts a tag value to the JSON type of t.
func typedDefault(t reflect.Type, value string) any {
	t = derefType(t)
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	case reflect.Bool:
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

// schemaUsage counts, per named struct type, the operations whose documents
// reach it. Types used by two or more operations, and recursive types,
// become shared components.
type schemaUsage struct {
	fieldTypes map[reflect.Type]JSONSchema
	ops        map[reflect.Type]map[string]bool
	recursive  map[reflect.Type]bool
	names      map[reflect.Type]string
	order      []reflect.Type
}

func newSchemaUsage(fieldTypes map[reflect.Type]JSONSchema) *schemaUsage {
	return &schemaUsage{
		fieldTypes: fieldTypes,
		ops:        make(map[reflect.Type]map[string]bool),
		recursive:  make(map[reflect.Type]bool),
		names:      make(map[reflect.Type]string),
	}
}

// addSchema records that operation op documents s.
func (u *schemaUsage) addSchema(op string, s *Schema) {
	t := derefType(s.typ)
	if s.name != "" {
		u.names[t] = s.name
	}
	u.walk(op, t, nil)
}

// addFields records the field types of t without t itself; used for
// schemas exploded into parameters.
func (u *schemaUsage) addFields(op string, t reflect.Type) {
	t = derefType(t)
	for _, f := range wireFields(t) {
		u.walk(op, f.Type, []reflect.Type{t})
	}
}

func (u *schemaUsage) walk(op string, t reflect.Type, stack []reflect.Type) {
	t = derefType(t)
	if _, ok := u.fieldTypes[t]; ok {
		return
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		u.walk(op, t.Elem(), stack)
		return
	case reflect.Struct:
	default:
		return
	}
	if isLeafType(t) {
		return
	}

	for _, seen := range stack {
		if seen == t {
			u.recursive[t] = true
			return
		}
	}

	if typeName(t) != "" {
		if u.ops[t] == nil {
			u.ops[t] = make(map[string]bool)
			u.order = append(u.order, t)
		}
		u.ops[t][op] = true
	}

	stack = append(stack, t)
	for _, f := range wireFields(t) {
		u.walk(op, f.Type, stack)
	}
}

// shared returns the component name of every promoted type. forced types
// are always promoted. Two distinct types sharing a name is an error.
func (u *schemaUsage) shared(forced map[reflect.Type]string) (map[reflect.Type]string, error) {
	refs := make(map[reflect.Type]string, len(forced))
	byName := make(map[string]reflect.Type, len(forced))
	for t, name := range forced {
		refs[t] = name
		byName[name] = t
	}

	for _, t := range u.order {
		if _, ok := refs[t]; ok {
			continue
		}
		if len(u.ops[t]) < 2 && !u.recursive[t] {
			continue
		}
		name := u.names[t]
		if name == "" {
			name = typeName(t)
		}
		if other, clash := byName[name]; clash && other != t {
			return nil, configErrorf("", "schema name %q used by both %s and %s", name, other, t)
		}
		refs[t] = name
		byName[name] = t
	}
	return refs, nil
}

// components renders the definition of every shared type, sorted by name.
func (b *schemaBuilder) components() map[string]JSONSchema {
	out := make(map[string]JSONSchema, len(b.refs))
	types := make([]reflect.Type, 0, len(b.refs))
	for t := range b.refs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return b.refs[types[i]] < b.refs[types[j]] })
	for _, t := range types {
		out[b.refs[t]] = b.define(t)
	}
	return out
}
