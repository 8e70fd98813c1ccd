package rest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/rest"
)

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	verr := &rest.ValidationError{}
	verr.Add(rest.LocationQuery, "page", "Not a valid integer.")

	tests := map[string]struct {
		err  error
		want int
	}{
		"http error":         {err: rest.Error(http.StatusNotFound, "gone"), want: http.StatusNotFound},
		"wrapped http error": {err: fmt.Errorf("x: %w", rest.Error(http.StatusConflict, "")), want: http.StatusConflict},
		"validation":         {err: verr, want: http.StatusUnprocessableEntity},
		"validation status":  {err: &rest.ValidationError{Status: http.StatusBadRequest}, want: http.StatusBadRequest},
		"sentinel":           {err: rest.ErrPreconditionRequired, want: http.StatusPreconditionRequired},
		"plain":              {err: errors.New("plain"), want: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, rest.ErrorStatus(tc.err))
		})
	}
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Not Found", rest.Error(http.StatusNotFound, "").Error())
	assert.Equal(t, "item 3 not found", rest.Errorf(http.StatusNotFound, "item %d not found", 3).Error())

	copied := &rest.HTTPError{
		Status:  rest.ErrNotModified.Status,
		Message: rest.ErrNotModified.Message,
		Header:  http.Header{"Etag": {`"abc"`}},
	}
	assert.ErrorIs(t, copied, rest.ErrNotModified)
	assert.NotErrorIs(t, copied, rest.ErrPreconditionFailed)
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	verr := &rest.ValidationError{}
	verr.Add(rest.LocationQuery, "page", "Not a valid integer.")
	verr.Add(rest.LocationJSON, "name", "Missing data for required field.")
	verr.Add(rest.LocationJSON, "id", "Not a valid integer.")
	verr.Add(rest.LocationJSON, "id", "Must be greater than or equal to 1.")

	assert.Equal(t,
		"validation failed: json.id: Not a valid integer. Must be greater than or equal to 1.; "+
			"json.name: Missing data for required field.; query.page: Not a valid integer.",
		verr.Error())
}

func TestConfigurationError(t *testing.T) {
	t.Parallel()

	err := &rest.ConfigurationError{Endpoint: "GET /items", Reason: "nil handler"}
	assert.Equal(t, "configuration error: GET /items: nil handler", err.Error())
	assert.ErrorIs(t, err, rest.ErrConfiguration)

	err = &rest.ConfigurationError{Reason: "API title must be set"}
	assert.Equal(t, "configuration error: API title must be set", err.Error())
}

func TestErrorResponse_http_error_details(t *testing.T) {
	t.Parallel()

	a := newAPI(t)
	bp := rest.NewBlueprint("test", "")
	bp.Route("/t").Get(returning(nil), rest.Arguments(rest.SchemaFor[Listing](), rest.LocationQuery))
	bp.Route("/conflict").Get(func(_ context.Context, _ *rest.Call) (any, error) {
		return nil, &rest.HTTPError{
			Status:  http.StatusConflict,
			Message: "name taken",
			Errors:  map[string]any{"name": []string{"already used"}},
			Header:  http.Header{"Retry-After": {"10"}},
		}
	})
	register(t, a, bp)

	rec := serve(t, a, http.MethodGet, "/conflict", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":409,"status":"Conflict","message":"name taken","errors":{"name":["already used"]}}`,
		rec.Body.String())

	rec = serve(t, a, http.MethodGet, "/t?limit=x", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"code":422,"status":"Unprocessable Entity","errors":{"query":{"limit":["Not a valid integer."]}}}`,
		rec.Body.String())
}
