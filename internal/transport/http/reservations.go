package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// ReservationGateway is the cap-enforced reservation surface: reserve and
// commit go through the flash sale enforcer.
type ReservationGateway interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Reservation, error)
	Commit(ctx context.Context, in app.CommitInput) (domain.Reservation, error)
	Release(ctx context.Context, id string, reason domain.LedgerReason) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
}

// ReservationExtender refreshes hold TTLs; caps do not gate extension.
type ReservationExtender interface {
	Extend(ctx context.Context, id string, ttl time.Duration) (domain.Reservation, error)
}

// HandleCreateReservation serves POST /reservations.
func HandleCreateReservation(svc ReservationGateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.VariantID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "variant_id is required")
			return
		}
		if req.Holder == "" {
			writeError(w, http.StatusBadRequest, codeHolderRequired, domain.ErrHolderRequired.Error())
			return
		}
		if req.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			Holder:    req.Holder,
			UserID:    req.UserID,
			TTL:       time.Duration(req.TTLSeconds) * time.Second,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toReservationResponse(res))
	}
}

// HandleReservation serves GET /reservations/{id} and
// POST /reservations/{id}/{extend|release|commit}.
func HandleReservation(svc ReservationGateway, extender ReservationExtender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := parseReservationPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if action == "" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			res, err := svc.Get(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
			return
		}

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "extend":
			var req extendRequest
			if err := decodeOptionalBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			res, err := extender.Extend(r.Context(), id, time.Duration(req.TTLSeconds)*time.Second)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
		case "release":
			if err := svc.Release(r.Context(), id, domain.ReasonReserveRelease); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "commit":
			var req commitRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.OrderID == "" {
				writeError(w, http.StatusBadRequest, codeInvalidID, "order_id is required")
				return
			}
			res, err := svc.Commit(r.Context(), app.CommitInput{
				ReservationID: id,
				OrderID:       req.OrderID,
				UserID:        req.UserID,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseReservationPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// decodeOptionalBody tolerates an empty body for actions whose parameters
// are all optional.
func decodeOptionalBody(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type createReservationRequest struct {
	VariantID  string `json:"variant_id"`
	Quantity   int    `json:"quantity"`
	Holder     string `json:"holder"`
	UserID     string `json:"user_id"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type extendRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

type commitRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type reservationResponse struct {
	ID        string    `json:"id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	Holder    string    `json:"holder"`
	Status    string    `json:"status"`
	OrderID   string    `json:"order_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:        r.ID,
		VariantID: r.VariantID,
		Quantity:  r.Quantity,
		Holder:    r.Holder,
		Status:    string(r.Status),
		OrderID:   r.OrderID,
		ExpiresAt: r.ExpiresAt,
	}
}
