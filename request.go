package rest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swaggest/form/v5"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

// formDecoder decodes flat locations. Field names come from the json tag so
// one struct can be read from any location.
var formDecoder = sync.OnceValue(func() *form.Decoder {
	dec := form.NewDecoder()
	dec.RegisterTagNameFunc(func(f reflect.StructField) string {
		if f.Anonymous && f.Tag.Get("json") == "" {
			return ""
		}
		if isUploadType(f.Type) {
			return "-"
		}
		return jsonFieldName(f)
	})
	dec.RegisterFunc(func(s string) (interface{}, error) {
		return time.Parse(time.RFC3339, s)
	}, time.Time{})
	return dec
})

// loadArgument extracts and validates one argument from r.
func loadArgument(r *http.Request, arg *argument, policy UnknownPolicy) (any, error) {
	switch arg.location {
	case LocationJSON:
		body, err := readJSONBody(r)
		if err != nil {
			return nil, err
		}
		return arg.schema.loadJSON(LocationJSON, body, policy)
	case LocationFiles:
		return arg.schema.loadFiles(r, policy)
	default:
		values, err := locationValues(r, arg.location, arg.schema.typ)
		if err != nil {
			return nil, err
		}
		return arg.schema.loadValues(arg.location, values, policy)
	}
}

// readJSONBody returns the request body, or nil when the request does not
// carry JSON. A missing body loads as an empty object.
func readJSONBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !isJSONMediaType(mediaType) {
			return nil, nil
		}
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, Error(http.StatusRequestEntityTooLarge, "request body too large")
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// locationValues collects the raw values of a flat location.
func locationValues(r *http.Request, loc Location, t reflect.Type) (url.Values, error) {
	values := url.Values{}

	//exhaustive:ignore
	switch loc {
	case LocationQuery:
		return r.URL.Query(), nil

	case LocationPath:
		for name := range fieldNames(t) {
			if v := r.PathValue(name); v != "" {
				values.Set(name, v)
			}
		}

	case LocationHeaders:
		declared := make(map[string]string)
		for name := range fieldNames(t) {
			declared[http.CanonicalHeaderKey(name)] = name
		}
		for key, vs := range r.Header {
			if name, ok := declared[http.CanonicalHeaderKey(key)]; ok {
				values[name] = vs
				continue
			}
			values[key] = vs
		}

	case LocationCookies:
		for _, c := range r.Cookies() {
			values.Add(c.Name, c.Value)
		}

	case LocationForm:
		if err := parseForm(r); err != nil {
			return nil, err
		}
		for key, vs := range r.PostForm {
			values[key] = vs
		}
	}

	return values, nil
}

func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxMultipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		if r.PostForm == nil {
			err = r.ParseForm()
		} else {
			err = nil
		}
	}
	if err != nil {
		verr := &ValidationError{}
		verr.Add(LocationForm, "_schema", "Invalid form body.")
		return verr
	}
	return nil
}

// loadFiles fills the upload fields of the schema type from a multipart body.
func (s *Schema) loadFiles(r *http.Request, policy UnknownPolicy) (any, error) {
	verr := &ValidationError{}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		verr.Add(LocationFiles, "_schema", "Invalid multipart body.")
		return nil, verr
	}

	target := reflect.New(s.typ).Elem()
	fields := fieldNames(s.typ)
	for name, f := range fields {
		var headers []*multipart.FileHeader
		if r.MultipartForm != nil {
			headers = r.MultipartForm.File[name]
		}
		if len(headers) == 0 {
			if isRequired(f) {
				verr.Add(LocationFiles, name, "Missing data for required field.")
			}
			continue
		}
		if !isUploadType(f.Type) {
			continue
		}
		setUploadField(target.FieldByIndex(f.Index), headers)
	}

	if policy == UnknownRaise && r.MultipartForm != nil {
		for key := range r.MultipartForm.File {
			if _, known := fields[key]; !known {
				verr.Add(LocationFiles, key, "Unknown field.")
			}
		}
	}
	if !verr.empty() {
		return nil, verr
	}

	return s.finish(LocationFiles, target, verr)
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
