package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// AvailabilityReader is the minimal interface the display path needs.
type AvailabilityReader interface {
	Availability(ctx context.Context, variantID string) (domain.Availability, error)
}

// HandleAvailability serves GET /availability/{variantID}. Reads may be
// slightly stale; reserve and commit always re-check inside the lock.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		variantID, ok := parseAvailabilityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		avail, err := svc.Availability(r.Context(), variantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := availabilityResponse{
			VariantID: avail.VariantID,
			Available: avail.Available,
			Tracked:   avail.Tracked,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseAvailabilityPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "availability" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type availabilityResponse struct {
	VariantID string `json:"variant_id"`
	Available int    `json:"available"`
	Tracked   bool   `json:"tracked"`
}
