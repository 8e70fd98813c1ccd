package rest

import (
	"reflect"
	"strings"
)

// wireFields returns the exported fields of struct type t that take part in
// (de)serialization, flattening untagged embedded structs the way
// encoding/json does.
func wireFields(t reflect.Type) []reflect.StructField {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []reflect.StructField
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" && f.Type.Kind() == reflect.Struct {
			for _, inner := range wireFields(f.Type) {
				inner.Index = append([]int{i}, inner.Index...)
				fields = append(fields, inner)
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if jsonFieldName(f) == "-" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// jsonFieldName returns the wire name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _ := tagOptions(tag)
	if name == "" {
		return f.Name
	}
	return name
}

// isRequired reports whether a field is tagged required:"true".
func isRequired(f reflect.StructField) bool {
	return f.Tag.Get("required") == "true"
}

// tagOptions splits a struct tag value on comma and returns
// the name and remaining options.
func tagOptions(tag string) (string, string) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts
}

// fieldNames returns the wire names declared by struct type t.
func fieldNames(t reflect.Type) map[string]reflect.StructField {
	fields := wireFields(t)
	names := make(map[string]reflect.StructField, len(fields))
	for _, f := range fields {
		names[jsonFieldName(f)] = f
	}
	return names
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
