package rest

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// registerDocRoutes serves the document and the configured viewer pages
// under the URL prefix. Nothing is served without a prefix.
func (a *API) registerDocRoutes() error {
	cfg := a.cfg
	if cfg.URLPrefix == "" {
		return nil
	}
	specURL := docPath(cfg.URLPrefix, cfg.JSONPath)

	routes := []docRoute{
		{cfg.JSONPath, a.specHandler("application/json", a.WriteSpec)},
		{cfg.YAMLPath, a.specHandler("application/yaml", a.WriteSpecYAML)},
	}
	for _, v := range viewers {
		path, page := v.page(cfg.Config)
		if path == "" {
			continue
		}
		page.Title = cfg.Title
		page.SpecURL = specURL
		routes = append(routes, docRoute{path, v.handler(page)})
	}

	for _, rt := range routes {
		if rt.path == "" {
			continue
		}
		if err := a.handle("GET "+docPath(cfg.URLPrefix, rt.path), rt.handler); err != nil {
			return configErrorf("", "documentation route %q: %v", rt.path, err)
		}
	}
	return nil
}

type docRoute struct {
	path    string
	handler http.Handler
}

// specHandler serves the document rendered by write.
func (a *API) specHandler(contentType string, write func(io.Writer) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			a.logger.ErrorContext(r.Context(), "render openapi document", "error", err)
			writeErrorResponse(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(buf.Bytes())
	})
}

// docPath joins the URL prefix and a documentation path.
func docPath(prefix, path string) string {
	prefix = strings.Trim(prefix, "/")
	path = strings.TrimPrefix(path, "/")
	if prefix == "" {
		return "/" + path
	}
	return "/" + prefix + "/" + path
}
