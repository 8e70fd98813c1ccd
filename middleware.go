package rest

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware is the standard middleware signature compatible with the entire
// Go middleware ecosystem.
type Middleware func(next http.Handler) http.Handler

// Recovery returns middleware that recovers from panics and responds with
// a JSON 500 error.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					slog.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					writeErrorResponse(w, Error(http.StatusInternalServerError, ""))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
