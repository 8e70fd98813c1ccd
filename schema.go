package rest

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/swaggest/form/v5"
)

// Schema describes how a Go type is loaded from and dumped to the wire.
// Struct tags drive it: json names every field in every location,
// required:"true" marks mandatory input, default:"..." fills absent values,
// doc:"..." documents the field and the constraint tags (minLength, maximum,
// enum, ...) validate it.
type Schema struct {
	typ  reflect.Type
	many bool
	name string
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// Many makes the schema load and dump collections of the type.
func Many() SchemaOption {
	return func(s *Schema) { s.many = true }
}

// Named overrides the component name used when the schema is shared in the
// generated document.
func Named(name string) SchemaOption {
	return func(s *Schema) { s.name = name }
}

// SchemaFor returns the schema of T.
func SchemaFor[T any](opts ...SchemaOption) *Schema {
	s := &Schema{typ: reflect.TypeFor[T]()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns the element type described by the schema.
func (s *Schema) Type() reflect.Type { return s.typ }

// IsMany reports whether the schema describes a collection.
func (s *Schema) IsMany() bool { return s.many }

// Name returns the component name of the schema type.
func (s *Schema) Name() string {
	if s.name != "" {
		return s.name
	}
	return typeName(derefType(s.typ))
}

func (s *Schema) String() string {
	if s.many {
		return "[]" + s.typ.String()
	}
	return s.typ.String()
}

func (s *Schema) equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.typ == o.typ && s.many == o.many && s.name == o.name
}

// Field describes one declared field of a schema.
type Field struct {
	Name        string
	Type        reflect.Type
	Required    bool
	Default     string
	Description string
}

// Fields returns the declared wire fields in declaration order.
func (s *Schema) Fields() []Field {
	fields := wireFields(s.typ)
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, Field{
			Name:        jsonFieldName(f),
			Type:        f.Type,
			Required:    isRequired(f),
			Default:     f.Tag.Get("default"),
			Description: f.Tag.Get("doc"),
		})
	}
	return out
}

// Deserialize validates raw input and returns the loaded value: a T, or a
// []T for Many schemas. raw may be JSON bytes, a decoded JSON object or
// array, or url.Values for flat input. Failures are *ValidationError.
func (s *Schema) Deserialize(raw any, policy UnknownPolicy) (any, error) {
	switch raw := raw.(type) {
	case url.Values:
		return s.loadValues(LocationQuery, raw, policy)
	case []byte:
		return s.loadJSON(LocationJSON, raw, policy)
	case json.RawMessage:
		return s.loadJSON(LocationJSON, raw, policy)
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("rest: deserialize %T: %w", raw, err)
		}
		return s.loadJSON(LocationJSON, data, policy)
	}
}

// Serialize checks v against the schema and returns the value to encode.
// Nil collections become empty ones.
func (s *Schema) Serialize(v any) (any, error) {
	if v == nil {
		if s.many {
			return reflect.MakeSlice(reflect.SliceOf(s.typ), 0, 0).Interface(), nil
		}
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	if s.many {
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("rest: cannot serialize %s with schema %s: not a collection", rv.Type(), s)
		}
		if !s.accepts(rv.Type().Elem()) {
			return nil, fmt.Errorf("rest: cannot serialize %s with schema %s", rv.Type(), s)
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return reflect.MakeSlice(rv.Type(), 0, 0).Interface(), nil
		}
		return v, nil
	}

	if !s.accepts(rv.Type()) {
		return nil, fmt.Errorf("rest: cannot serialize %s with schema %s", rv.Type(), s)
	}
	return v, nil
}

func (s *Schema) accepts(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return true
	}
	if t == s.typ || t.AssignableTo(s.typ) {
		return true
	}
	return t.Kind() == reflect.Pointer && t.Elem() == s.typ
}

func (s *Schema) loadJSON(loc Location, data []byte, policy UnknownPolicy) (any, error) {
	verr := &ValidationError{}

	var generic any
	if len(bytes.TrimSpace(data)) == 0 {
		if s.many {
			generic = []any{}
		} else {
			generic = map[string]any{}
		}
		data = nil
	} else if err := json.Unmarshal(data, &generic); err != nil {
		verr.Add(loc, "_schema", "Invalid JSON body.")
		return nil, verr
	}
	if generic == nil {
		verr.Add(loc, "_schema", "Invalid input type.")
		return nil, verr
	}

	isStruct := derefType(s.typ).Kind() == reflect.Struct && !isLeafType(s.typ)
	if s.many {
		items, ok := generic.([]any)
		if !ok {
			verr.Add(loc, "_schema", "Invalid input type.")
			return nil, verr
		}
		if isStruct {
			for i, item := range items {
				checkObject(loc, s.typ, item, fmt.Sprint(i), policy, verr)
			}
		}
	} else if isStruct {
		checkObject(loc, s.typ, generic, "", policy, verr)
	}
	if !verr.empty() {
		return nil, verr
	}

	var target reflect.Value
	if s.many {
		target = reflect.New(reflect.SliceOf(s.typ))
	} else {
		target = reflect.New(s.typ)
	}
	if data == nil {
		data = []byte("{}")
		if s.many {
			data = []byte("[]")
		}
	}
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "_schema"
			}
			verr.Add(loc, field, typeMessage(typeErr.Type))
			return nil, verr
		}
		verr.Add(loc, "_schema", "Invalid input type.")
		return nil, verr
	}

	if !s.many && s.typ.Kind() == reflect.Struct {
		applyJSONDefaults(target.Elem(), generic)
	}

	return s.finish(loc, target.Elem(), verr)
}

// checkObject reports missing required fields and, under UnknownRaise,
// unknown keys at every nesting level of a decoded JSON object.
func checkObject(loc Location, t reflect.Type, v any, prefix string, policy UnknownPolicy, verr *ValidationError) {
	obj, ok := v.(map[string]any)
	if !ok {
		verr.Add(loc, joinPath(prefix, "_schema"), "Invalid input type.")
		return
	}

	fields := fieldNames(t)
	for name, f := range fields {
		val, present := obj[name]
		if !present {
			if isRequired(f) && f.Tag.Get("default") == "" {
				verr.Add(loc, joinPath(prefix, name), "Missing data for required field.")
			}
			continue
		}
		if val == nil {
			if isRequired(f) {
				verr.Add(loc, joinPath(prefix, name), "Field may not be null.")
			}
			continue
		}

		ft := derefType(f.Type)
		switch {
		case ft.Kind() == reflect.Struct && !isLeafType(ft):
			checkObject(loc, ft, val, joinPath(prefix, name), policy, verr)
		case (ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array) && isStructType(ft.Elem()):
			if items, ok := val.([]any); ok {
				for i, item := range items {
					checkObject(loc, derefType(ft.Elem()), item, joinPath(prefix, fmt.Sprintf("%s.%d", name, i)), policy, verr)
				}
			}
		}
	}

	if policy != UnknownRaise {
		return
	}
	for key := range obj {
		if _, known := fields[key]; !known {
			verr.Add(loc, joinPath(prefix, key), "Unknown field.")
		}
	}
}

func applyJSONDefaults(rv reflect.Value, generic any) {
	obj, _ := generic.(map[string]any)
	for _, f := range wireFields(rv.Type()) {
		def := f.Tag.Get("default")
		if def == "" {
			continue
		}
		if _, present := obj[jsonFieldName(f)]; present {
			continue
		}
		//nolint:errcheck // defaults are checked when the schema is documented
		setFieldValue(rv.FieldByIndex(f.Index), def)
	}
}

func (s *Schema) loadValues(loc Location, values url.Values, policy UnknownPolicy) (any, error) {
	verr := &ValidationError{}
	fields := fieldNames(s.typ)

	flat := make(url.Values, len(values))
	for key, vs := range values {
		f, known := fields[key]
		if !known {
			if policy == UnknownRaise {
				verr.Add(loc, key, "Unknown field.")
			}
			continue
		}
		if isUploadType(f.Type) {
			continue
		}
		switch {
		case len(vs) == 1:
			flat.Set(key, vs[0])
		case len(vs) > 1:
			for i, v := range vs {
				flat.Set(fmt.Sprintf("%s[%d]", key, i), v)
			}
		}
	}

	for name, f := range fields {
		if _, present := values[name]; present || isUploadType(f.Type) {
			continue
		}
		if def := f.Tag.Get("default"); def != "" {
			flat.Set(name, def)
			continue
		}
		if isRequired(f) {
			verr.Add(loc, name, "Missing data for required field.")
		}
	}
	if !verr.empty() {
		return nil, verr
	}

	target := reflect.New(s.typ)
	if err := formDecoder().Decode(target.Interface(), flat); err != nil {
		var decodeErrs form.DecodeErrors
		if !errors.As(err, &decodeErrs) {
			return nil, fmt.Errorf("rest: decode %s: %w", loc, err)
		}
		for key := range decodeErrs {
			name := strings.SplitN(key, "[", 2)[0]
			msg := "Not a valid value."
			if f, ok := fields[name]; ok {
				msg = typeMessage(f.Type)
			}
			verr.Add(loc, name, msg)
		}
		return nil, verr
	}

	return s.finish(loc, target.Elem(), verr)
}

// finish runs constraint and self validation on a loaded value.
func (s *Schema) finish(loc Location, v reflect.Value, verr *ValidationError) (any, error) {
	checkConstraints(loc, v, verr)
	if !verr.empty() {
		return nil, verr
	}

	var self SelfValidator
	if v.CanAddr() {
		self, _ = v.Addr().Interface().(SelfValidator)
	}
	if self == nil {
		self, _ = v.Interface().(SelfValidator)
	}
	if self != nil {
		if err := self.Validate(); err != nil {
			var inner *ValidationError
			if errors.As(err, &inner) {
				return nil, inner
			}
			verr.Add(loc, "_schema", err.Error())
			return nil, verr
		}
	}
	return v.Interface(), nil
}

// typeMessage is the message for a value that cannot be converted to t.
func typeMessage(t reflect.Type) string {
	t = derefType(t)
	switch {
	case t == reflect.TypeFor[time.Time]():
		return "Not a valid datetime."
	case isStructType(t):
		return "Invalid input type."
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Not a valid boolean."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "Not a valid integer."
	case reflect.Float32, reflect.Float64:
		return "Not a valid number."
	case reflect.Slice, reflect.Array:
		return "Not a valid list."
	case reflect.Map:
		return "Not a valid mapping type."
	default:
		return "Invalid value."
	}
}

// isLeafType reports whether t is documented and loaded as a scalar even
// though it may be a struct.
func isLeafType(t reflect.Type) bool {
	t = derefType(t)
	if t == reflect.TypeFor[time.Time]() || t == reflect.TypeFor[FileUpload]() {
		return true
	}
	if reflect.PointerTo(t).Implements(reflect.TypeFor[encoding.TextUnmarshaler]()) {
		return true
	}
	return false
}

func isStructType(t reflect.Type) bool {
	t = derefType(t)
	return t.Kind() == reflect.Struct && !isLeafType(t)
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// typeName returns a component-safe name for t.
func typeName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return ""
	}
	return strings.Trim(nonIdent.ReplaceAllString(name, "_"), "_")
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
