package domain

import "errors"

var (
	ErrVariantNotFound     = errors.New("variant not found")
	ErrVariantExists       = errors.New("variant already exists")
	ErrVariantFrozen       = errors.New("variant frozen pending reconciliation")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCapExceeded         = errors.New("flash sale cap exceeded")
	ErrSaleEnded           = errors.New("flash sale ended")
	ErrSaleNotFound        = errors.New("flash sale not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationInvalid  = errors.New("reservation invalid")
	ErrOrderLineNotFound   = errors.New("order line not found")
	ErrInvalidTransition   = errors.New("invalid order line transition")
	ErrLedgerMismatch      = errors.New("ledger replay mismatch")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidReason       = errors.New("invalid ledger reason")
	ErrHolderRequired      = errors.New("holder required")
	ErrUserRequired        = errors.New("user required")
	ErrInvalidID           = errors.New("invalid id")
	ErrTransient           = errors.New("transient storage conflict")
)
