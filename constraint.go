package rest

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// checkConstraints walks v and records every constraint-tag violation in
// verr under loc. Nested structs use dotted field paths.
func checkConstraints(loc Location, v reflect.Value, verr *ValidationError) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Struct:
		collectConstraintErrors(loc, v, "", verr)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			elem := reflect.Indirect(v.Index(i))
			if elem.Kind() == reflect.Struct {
				collectConstraintErrors(loc, elem, strconv.Itoa(i), verr)
			}
		}
	}
}

func collectConstraintErrors(loc Location, rv reflect.Value, prefix string, verr *ValidationError) {
	for _, f := range wireFields(rv.Type()) {
		fv := rv.FieldByIndex(f.Index)

		path := jsonFieldName(f)
		if prefix != "" {
			path = prefix + "." + path
		}

		checkFieldConstraints(loc, f, fv, path, verr)

		inner := fv
		for inner.Kind() == reflect.Pointer && !inner.IsNil() {
			inner = inner.Elem()
		}
		if inner.Kind() == reflect.Struct && !isLeafType(inner.Type()) {
			collectConstraintErrors(loc, inner, path, verr)
		}
	}
}

func checkFieldConstraints(loc Location, f reflect.StructField, fv reflect.Value, path string, verr *ValidationError) {
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return
		}
		fv = fv.Elem()
	}

	// Strings: minLength, maxLength, pattern and enum.
	if fv.Kind() == reflect.String {
		val := fv.String()
		if tag := f.Tag.Get("minLength"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && len(val) < n {
				verr.Add(loc, path, fmt.Sprintf("Shorter than minimum length %d.", n))
			}
		}
		if tag := f.Tag.Get("maxLength"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && len(val) > n {
				verr.Add(loc, path, fmt.Sprintf("Longer than maximum length %d.", n))
			}
		}
		if tag := f.Tag.Get("pattern"); tag != "" {
			if matched, err := regexp.MatchString(tag, val); err == nil && !matched {
				verr.Add(loc, path, "String does not match expected pattern.")
			}
		}
		if tag := f.Tag.Get("enum"); tag != "" && val != "" {
			allowed := strings.Split(tag, ",")
			found := false
			for _, a := range allowed {
				if a == val {
					found = true
					break
				}
			}
			if !found {
				verr.Add(loc, path, fmt.Sprintf("Must be one of: %s.", strings.Join(allowed, ", ")))
			}
		}
	}

	// Numbers.
	if isNumericKind(fv.Kind()) {
		floatVal := toFloat64(fv)
		if tag := f.Tag.Get("minimum"); tag != "" {
			if lower, err := strconv.ParseFloat(tag, 64); err == nil && floatVal < lower {
				verr.Add(loc, path, fmt.Sprintf("Must be greater than or equal to %s.", tag))
			}
		}
		if tag := f.Tag.Get("maximum"); tag != "" {
			if upper, err := strconv.ParseFloat(tag, 64); err == nil && floatVal > upper {
				verr.Add(loc, path, fmt.Sprintf("Must be less than or equal to %s.", tag))
			}
		}
	}

	// Slices.
	if fv.Kind() == reflect.Slice {
		length := fv.Len()
		if tag := f.Tag.Get("minItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length < n {
				verr.Add(loc, path, fmt.Sprintf("Must have at least %d items.", n))
			}
		}
		if tag := f.Tag.Get("maxItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length > n {
				verr.Add(loc, path, fmt.Sprintf("Must have at most %d items.", n))
			}
		}
	}
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default: // float32, float64
		return v.Float()
	}
}

// applyConstraintTags copies constraint tags of f onto a documented schema.
func applyConstraintTags(f reflect.StructField, s *JSONSchema) {
	if tag := f.Tag.Get("minLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MinLength = &n
		}
	}
	if tag := f.Tag.Get("maxLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MaxLength = &n
		}
	}
	if tag := f.Tag.Get("pattern"); tag != "" {
		s.Pattern = tag
	}
	if tag := f.Tag.Get("enum"); tag != "" {
		for _, v := range strings.Split(tag, ",") {
			s.Enum = append(s.Enum, v)
		}
	}
	if tag := f.Tag.Get("minimum"); tag != "" {
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			s.Minimum = &n
		}
	}
	if tag := f.Tag.Get("maximum"); tag != "" {
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			s.Maximum = &n
		}
	}
	if tag := f.Tag.Get("minItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MinItems = &n
		}
	}
	if tag := f.Tag.Get("maxItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MaxItems = &n
		}
	}
}
