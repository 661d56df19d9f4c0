package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// FulfillmentGateway drives order line transitions.
type FulfillmentGateway interface {
	OpenLine(ctx context.Context, in app.OpenLineInput) (domain.OrderLine, error)
	CapturePayment(ctx context.Context, lineID, userID string) (domain.OrderLine, error)
	FailPayment(ctx context.Context, lineID string) (domain.OrderLine, error)
	Cancel(ctx context.Context, lineID, userID string) (domain.OrderLine, error)
	Return(ctx context.Context, lineID, userID string) (domain.OrderLine, error)
}

// HandleOpenOrderLine serves POST /order-lines.
func HandleOpenOrderLine(svc FulfillmentGateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req openLineRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.OrderID == "" || req.ReservationID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "order_id and reservation_id are required")
			return
		}

		line, err := svc.OpenLine(r.Context(), app.OpenLineInput{
			OrderID:       req.OrderID,
			ReservationID: req.ReservationID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toOrderLineResponse(line))
	}
}

// HandleOrderLineActions serves POST /order-lines/{id}/{capture|fail|cancel|return}.
func HandleOrderLineActions(svc FulfillmentGateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, action, ok := parseOrderLinePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req orderLineActionRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		var (
			line domain.OrderLine
			err  error
		)
		switch action {
		case "capture":
			line, err = svc.CapturePayment(r.Context(), lineID, req.UserID)
		case "fail":
			line, err = svc.FailPayment(r.Context(), lineID)
		case "cancel":
			line, err = svc.Cancel(r.Context(), lineID, req.UserID)
		case "return":
			line, err = svc.Return(r.Context(), lineID, req.UserID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toOrderLineResponse(line))
	}
}

func parseOrderLinePath(path string) (lineID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "order-lines" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type openLineRequest struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type orderLineActionRequest struct {
	UserID string `json:"user_id"`
}

type orderLineResponse struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	VariantID     string    `json:"variant_id"`
	ReservationID string    `json:"reservation_id"`
	Quantity      int       `json:"quantity"`
	State         string    `json:"state"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toOrderLineResponse(line domain.OrderLine) orderLineResponse {
	return orderLineResponse{
		ID:            line.ID,
		OrderID:       line.OrderID,
		VariantID:     line.VariantID,
		ReservationID: line.ReservationID,
		Quantity:      line.Quantity,
		State:         string(line.State),
		UpdatedAt:     line.UpdatedAt,
	}
}
