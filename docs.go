package rest

import (
	"html/template"
	"net/http"
	"strings"
)

// viewerPage is the data of a documentation viewer page.
type viewerPage struct {
	Title      string
	SpecURL    string
	Script     string
	Stylesheet string
}

// viewer is an interactive documentation page loaded from a CDN.
type viewer struct {
	tmpl *template.Template
	// page returns the configured path and assets, or an empty path when
	// the viewer is disabled.
	page func(Config) (string, viewerPage)
}

func (v viewer) handler(page viewerPage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		v.tmpl.Execute(w, page)
	})
}

const jsDelivr = "https://cdn.jsdelivr.net/npm/"

var viewers = []viewer{
	{
		tmpl: template.Must(template.New("redoc").Parse(redocHTML)),
		page: func(c Config) (string, viewerPage) {
			script := c.RedocURL
			if script == "" {
				script = jsDelivr + "redoc@" + c.RedocVersion + "/bundles/redoc.standalone.js"
			}
			return c.RedocPath, viewerPage{Script: script}
		},
	},
	{
		tmpl: template.Must(template.New("swagger-ui").Parse(swaggerUIHTML)),
		page: func(c Config) (string, viewerPage) {
			// The Swagger UI URL is the distribution directory.
			base := c.SwaggerUIURL
			if base == "" {
				base = jsDelivr + "swagger-ui-dist@" + c.SwaggerUIVersion + "/"
			}
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
			return c.SwaggerUIPath, viewerPage{
				Script:     base + "swagger-ui-bundle.js",
				Stylesheet: base + "swagger-ui.css",
			}
		},
	},
	{
		tmpl: template.Must(template.New("rapidoc").Parse(rapiDocHTML)),
		page: func(c Config) (string, viewerPage) {
			script := c.RapiDocURL
			if script == "" {
				script = jsDelivr + "rapidoc@" + c.RapiDocVersion + "/dist/rapidoc-min.js"
			}
			return c.RapiDocPath, viewerPage{Script: script}
		},
	},
}

const redocHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>body { margin: 0; padding: 0; }</style>
</head>
<body>
  <redoc spec-url="{{.SpecURL}}"></redoc>
  <script src="{{.Script}}"></script>
</body>
</html>`

const swaggerUIHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="{{.Script}}"></script>
  <script>
    window.onload = function () {
      window.ui = SwaggerUIBundle({
        url: "{{.SpecURL}}",
        dom_id: "#swagger-ui",
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
      });
    };
  </script>
</body>
</html>`

const rapiDocHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <script type="module" src="{{.Script}}"></script>
</head>
<body>
  <rapi-doc spec-url="{{.SpecURL}}" render-style="read"></rapi-doc>
</body>
</html>`
