// Package swagger serves the collector's OpenAPI description and a ReDoc
// page that renders it.
package swagger

import (
	"context"
	"net/http"
)

// Routes.
const (
	PathSpec = "/openapi.yaml"
	PathDocs = "/api-docs"
)

// RedocScript is the ReDoc bundle the docs page loads.
const RedocScript = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// Register attaches the docs routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc(PathSpec, serve("application/yaml; charset=utf-8", OpenAPI))
	mux.HandleFunc(PathDocs, serve("text/html; charset=utf-8", []byte(indexHTML)))
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>gametrace collector API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + RedocScript + `"></script>
    <script>Redoc.init('` + PathSpec + `', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
