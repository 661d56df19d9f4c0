package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidReason       = "invalid_reason"
	codeInvalidID           = "invalid_id"
	codeHolderRequired      = "holder_required"
	codeUserRequired        = "user_required"
	codeVariantNotFound     = "variant_not_found"
	codeVariantExists       = "variant_exists"
	codeVariantFrozen       = "variant_frozen"
	codeInsufficientStock   = "insufficient_stock"
	codeCapExceeded         = "cap_exceeded"
	codeSaleEnded           = "sale_ended"
	codeSaleNotFound        = "sale_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeReservationInvalid  = "reservation_invalid"
	codeOrderLineNotFound   = "order_line_not_found"
	codeInvalidTransition   = "invalid_transition"
	codeInvariantViolation  = "invariant_violation"
	codeTransientConflict   = "transient_conflict"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the engine's sentinel errors to stable HTTP codes.
// Business-expected outcomes are 4xx; an invariant violation is a hard 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidReason):
		writeError(w, http.StatusBadRequest, codeInvalidReason, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrHolderRequired):
		writeError(w, http.StatusBadRequest, codeHolderRequired, err.Error())
	case errors.Is(err, domain.ErrUserRequired):
		writeError(w, http.StatusBadRequest, codeUserRequired, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, codeVariantNotFound, err.Error())
	case errors.Is(err, domain.ErrSaleNotFound):
		writeError(w, http.StatusNotFound, codeSaleNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderLineNotFound):
		writeError(w, http.StatusNotFound, codeOrderLineNotFound, err.Error())
	case errors.Is(err, domain.ErrVariantExists):
		writeError(w, http.StatusConflict, codeVariantExists, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrCapExceeded):
		writeError(w, http.StatusConflict, codeCapExceeded, err.Error())
	case errors.Is(err, domain.ErrSaleEnded):
		writeError(w, http.StatusConflict, codeSaleEnded, err.Error())
	case errors.Is(err, domain.ErrReservationInvalid):
		writeError(w, http.StatusConflict, codeReservationInvalid, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrVariantFrozen):
		writeError(w, http.StatusConflict, codeVariantFrozen, err.Error())
	case errors.Is(err, domain.ErrLedgerMismatch):
		writeError(w, http.StatusInternalServerError, codeInvariantViolation, err.Error())
	case errors.Is(err, domain.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, codeTransientConflict, "temporary conflict, retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
