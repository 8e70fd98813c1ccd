package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name" required:"true"`
}

func newAPI(t *testing.T, opts ...rest.Option) *rest.API {
	t.Helper()
	base := []rest.Option{rest.WithTitle("Test"), rest.WithVersion("1")}
	a, err := rest.New(append(base, opts...)...)
	require.NoError(t, err)
	return a
}

func register(t *testing.T, a *rest.API, bp *rest.Blueprint) {
	t.Helper()
	require.NoError(t, a.Register(bp))
}

func specJSON(t *testing.T, a *rest.API) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, a.WriteSpec(&buf))
	return buf.Bytes()
}

func specOperation(t *testing.T, a *rest.API, path, method string) *rest.Operation {
	t.Helper()
	doc, err := a.Spec()
	require.NoError(t, err)
	item, ok := doc.Paths.Get(path)
	require.True(t, ok, "path %s not documented", path)
	op := item.Operation(method)
	require.NotNil(t, op, "%s %s not documented", method, path)
	return op
}

// serve runs one request against h and returns the recorded response.
func serve(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequestWithContext(context.Background(), method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) rest.ErrorBody {
	t.Helper()
	var body rest.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func returning(v any) rest.HandlerFunc {
	return func(context.Context, *rest.Call) (any, error) {
		return v, nil
	}
}

func fieldErrors(t *testing.T, body rest.ErrorBody, loc string) map[string][]string {
	t.Helper()
	raw, err := json.Marshal(body.Errors[loc])
	require.NoError(t, err)
	var out map[string][]string
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
