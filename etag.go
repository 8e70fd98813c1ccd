package rest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var (
	// methodsNotModified answer 304 when If-None-Match matches.
	methodsNotModified = []string{http.MethodGet, http.MethodHead}
	// methodsNeedingCheck must send If-Match and call CheckETag.
	methodsNeedingCheck = []string{http.MethodPut, http.MethodPatch, http.MethodDelete}
	// methodsAllowingSet get an ETag header on success.
	methodsAllowingSet = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch}
)

// etagSpec is the cache strategy of one endpoint.
type etagSpec struct {
	schema *Schema
}

// etagState tracks the cache validator during one request.
type etagState struct {
	request *http.Request
	checked bool
	token   string
}

// computeETag fingerprints data and, when given, the values of extra
// response headers.
func computeETag(data any, headers [][2]string) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("etag: %w", err)
	}
	h := xxhash.New()
	//nolint:errcheck // xxhash writes never fail
	h.Write(raw)
	if len(headers) > 0 {
		extra, err := json.Marshal(headers)
		if err != nil {
			return "", fmt.Errorf("etag: %w", err)
		}
		//nolint:errcheck // xxhash writes never fail
		h.Write(extra)
	}
	var sum [8]byte
	return hex.EncodeToString(h.Sum(sum[:0])), nil
}

// dumpETagData serializes data with schema when one is given.
func dumpETagData(data any, schema []*Schema) (any, error) {
	if len(schema) == 0 || schema[0] == nil {
		return data, nil
	}
	return schema[0].Serialize(data)
}

// parseETags splits an If-Match or If-None-Match header into opaque tags.
func parseETags(header string) []string {
	var tags []string
	for part := range strings.SplitSeq(header, ",") {
		tag := strings.TrimSpace(part)
		tag = strings.TrimPrefix(tag, "W/")
		tag = strings.Trim(tag, `"`)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func etagMatches(header, token string) bool {
	for _, tag := range parseETags(header) {
		if tag == "*" || tag == token {
			return true
		}
	}
	return false
}

// checkPrecondition fails requests that must be conditional but carry no If-Match.
func checkPrecondition(r *http.Request) error {
	if slices.Contains(methodsNeedingCheck, r.Method) && r.Header.Get("If-Match") == "" {
		return ErrPreconditionRequired
	}
	return nil
}

// check compares the client's If-Match with the token of data.
func (s *etagState) check(data any, schema []*Schema) error {
	dumped, err := dumpETagData(data, schema)
	if err != nil {
		return err
	}
	token, err := computeETag(dumped, nil)
	if err != nil {
		return err
	}
	s.checked = true
	if !etagMatches(s.request.Header.Get("If-Match"), token) {
		return ErrPreconditionFailed
	}
	return nil
}

// set fixes the token of the response. On GET and HEAD a matching
// If-None-Match ends the request with 304.
func (s *etagState) set(data any, schema []*Schema) error {
	dumped, err := dumpETagData(data, schema)
	if err != nil {
		return err
	}
	token, err := computeETag(dumped, nil)
	if err != nil {
		return err
	}
	s.token = token
	return s.notModified(token)
}

func (s *etagState) notModified(token string) error {
	if !slices.Contains(methodsNotModified, s.request.Method) {
		return nil
	}
	if etagMatches(s.request.Header.Get("If-None-Match"), token) {
		return &HTTPError{
			Status:  ErrNotModified.Status,
			Message: ErrNotModified.Message,
			Header:  http.Header{"Etag": {quoteETag(token)}},
		}
	}
	return nil
}

func quoteETag(token string) string {
	return `"` + token + `"`
}

// includeHeaders returns the named response headers present in h.
func includeHeaders(h http.Header, names []string) [][2]string {
	var out [][2]string
	for _, name := range names {
		if v := h.Get(name); v != "" {
			out = append(out, [2]string{name, v})
		}
	}
	return out
}
