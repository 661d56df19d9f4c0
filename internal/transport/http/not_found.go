package http

import "net/http"

// NotFoundHandler serves the JSON error envelope for unknown routes so
// unmatched paths do not fall back to the plain-text mux default.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "no such route")
	})
}
