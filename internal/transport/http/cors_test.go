package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	passthrough := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "preflight from allowed origin",
			allowed:    []string{"http://localhost:5173"},
			origin:     "http://localhost:5173",
			preflight:  true,
			wantStatus: http.StatusNoContent,
			wantOrigin: "http://localhost:5173",
		},
		{
			name:       "preflight from unknown origin",
			allowed:    []string{"http://localhost:5173"},
			origin:     "http://evil.local",
			preflight:  true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wildcard allows any origin",
			allowed:    []string{"*"},
			origin:     "http://anywhere.example",
			wantStatus: http.StatusTeapot,
			wantOrigin: "*",
		},
		{
			name:       "plain request from unknown origin passes through",
			allowed:    []string{"http://localhost:5173"},
			origin:     "http://evil.local",
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "no origin header passes through",
			allowed:    []string{"http://localhost:5173"},
			wantStatus: http.StatusTeapot,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/reservations", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}

			rec := httptest.NewRecorder()
			CORS(tc.allowed, passthrough).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("expected allow origin %q, got %q", tc.wantOrigin, got)
			}
		})
	}
}
