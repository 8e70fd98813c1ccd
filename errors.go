package rest

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// Sentinel HTTP errors raised by the cache validator.
var (
	ErrNotModified          = &HTTPError{Status: http.StatusNotModified, Message: "Resource not modified since last request."}
	ErrPreconditionFailed   = &HTTPError{Status: http.StatusPreconditionFailed, Message: "The precondition on the request for the URL evaluated to false."}
	ErrPreconditionRequired = &HTTPError{Status: http.StatusPreconditionRequired, Message: `This request is required to be conditional; try using "If-Match".`}
	ErrETagNotChecked       = &HTTPError{Status: http.StatusInternalServerError, Message: "ETag not checked in endpoint."}
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ConfigurationError reports an invalid or conflicting endpoint setup. It is
// detected at registration or aggregation time, never per request.
type ConfigurationError struct {
	Endpoint string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Endpoint == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Endpoint, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(endpoint, format string, args ...any) error {
	return &ConfigurationError{Endpoint: endpoint, Reason: fmt.Sprintf(format, args...)}
}

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

// ValidationError carries field-level messages grouped by request location.
type ValidationError struct {
	Status int
	Errors map[Location]FieldErrors
}

// Error returns a stable one-line summary of all messages.
func (e *ValidationError) Error() string {
	var parts []string
	for _, loc := range sortedLocations(e.Errors) {
		fields := e.Errors[loc]
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s.%s: %s", loc, name, strings.Join(fields[name], " ")))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StatusCode returns the HTTP status code, 422 unless overridden.
func (e *ValidationError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusUnprocessableEntity
	}
	return e.Status
}

// Add appends a message for field at loc.
func (e *ValidationError) Add(loc Location, field, msg string) {
	if e.Errors == nil {
		e.Errors = make(map[Location]FieldErrors)
	}
	if e.Errors[loc] == nil {
		e.Errors[loc] = make(FieldErrors)
	}
	e.Errors[loc][field] = append(e.Errors[loc][field], msg)
}

func (e *ValidationError) empty() bool { return len(e.Errors) == 0 }

func sortedLocations(m map[Location]FieldErrors) []Location {
	locs := make([]Location, 0, len(m))
	for loc := range m {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int
	Message string
	Errors  map[string]any
	Header  http.Header
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Is matches HTTP errors with the same status and message, so copies of the
// sentinels carrying extra headers still satisfy errors.Is.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Status == e.Status && t.Message == e.Message
}

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ErrorBody is the machine-readable payload of every error response.
type ErrorBody struct {
	Code    int            `json:"code"`
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Errors  map[string]any `json:"errors,omitempty"`
}

// newErrorBody converts any error into the payload written to clients.
// Messages of unclassified errors are not exposed.
func newErrorBody(err error) ErrorBody {
	status := ErrorStatus(err)
	body := ErrorBody{Code: status, Status: http.StatusText(status)}

	var verr *ValidationError
	var herr *HTTPError
	switch {
	case errors.As(err, &verr):
		body.Errors = make(map[string]any, len(verr.Errors))
		for loc, fields := range verr.Errors {
			body.Errors[string(loc)] = fields
		}
	case errors.As(err, &herr):
		if herr.Message != "" {
			body.Message = herr.Message
		}
		body.Errors = herr.Errors
	case status < http.StatusInternalServerError:
		body.Message = err.Error()
	}
	return body
}

// ErrorHandler is a custom error response writer. It receives the error
// exactly as returned by the handler or the pipeline.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// writeErrorResponse writes err with the default JSON error shape.
func writeErrorResponse(w http.ResponseWriter, err error) {
	var herr *HTTPError
	if errors.As(err, &herr) {
		for k, vs := range herr.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
	}

	status := ErrorStatus(err)
	if status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	jsonCodec{}.Encode(w, newErrorBody(err))
}
