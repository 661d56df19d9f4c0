package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

func TestHandleCreateReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	successResv := domain.Reservation{
		ID:        "resv-123",
		VariantID: "v1",
		Quantity:  2,
		Holder:    "cart-1",
		Status:    domain.ReservationActive,
		ExpiresAt: now.Add(15 * time.Minute),
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":"resv-123"`,
		},
		{
			name:           "invalid json",
			body:           `{"variant_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing variant id",
			body:           `{"quantity":2,"holder":"cart-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing holder",
			body:           `{"variant_id":"v1","quantity":2}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid quantity",
			body:           `{"variant_id":"v1","quantity":0,"holder":"cart-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "variant not found",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrVariantNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "insufficient stock",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrInsufficientStock,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"insufficient_stock"`,
		},
		{
			name:           "flash sale cap exceeded",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrCapExceeded,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"cap_exceeded"`,
		},
		{
			name:           "sale window closed",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrSaleEnded,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "variant frozen",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrVariantFrozen,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "transient conflict",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     domain.ErrTransient,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "internal error",
			body:           `{"variant_id":"v1","quantity":2,"holder":"cart-1"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReservationGateway{resv: successResv, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleCreateReservation(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	resv := domain.Reservation{
		ID:        "resv-123",
		VariantID: "v1",
		Quantity:  2,
		Holder:    "cart-1",
		Status:    domain.ReservationActive,
		ExpiresAt: now.Add(15 * time.Minute),
	}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		gatewayErr     error
		extendErr      error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "get reservation",
			method:         http.MethodGet,
			path:           "/reservations/resv-123",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"id":"resv-123"`,
		},
		{
			name:           "get unknown reservation",
			method:         http.MethodGet,
			path:           "/reservations/missing",
			gatewayErr:     domain.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "extend with body",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/extend",
			body:           `{"ttl_seconds":600}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "extend with empty body uses default ttl",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/extend",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "extend terminal reservation",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/extend",
			extendErr:      domain.ErrReservationInvalid,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "release",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/release",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "commit",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/commit",
			body:           `{"order_id":"order-1"}`,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"id":"resv-123"`,
		},
		{
			name:           "commit without order id",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/commit",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "commit expired reservation",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/commit",
			body:           `{"order_id":"order-1"}`,
			gatewayErr:     domain.ErrReservationInvalid,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"reservation_invalid"`,
		},
		{
			name:           "commit over flash sale cap",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/commit",
			body:           `{"order_id":"order-1"}`,
			gatewayErr:     domain.ErrCapExceeded,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown action",
			method:         http.MethodPost,
			path:           "/reservations/resv-123/refund",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "get with wrong method",
			method:         http.MethodDelete,
			path:           "/reservations/resv-123",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReservationGateway{resv: resv, err: tt.gatewayErr}
			ext := &stubReservationExtender{resv: resv, err: tt.extendErr}

			var body *bytes.Buffer
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			} else {
				body = &bytes.Buffer{}
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()

			HandleReservation(svc, ext).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubReservationGateway struct {
	resv domain.Reservation
	err  error
}

func (s *stubReservationGateway) Reserve(_ context.Context, _ app.ReserveInput) (domain.Reservation, error) {
	return s.resv, s.err
}

func (s *stubReservationGateway) Commit(_ context.Context, _ app.CommitInput) (domain.Reservation, error) {
	return s.resv, s.err
}

func (s *stubReservationGateway) Release(_ context.Context, _ string, _ domain.LedgerReason) error {
	return s.err
}

func (s *stubReservationGateway) Get(_ context.Context, _ string) (domain.Reservation, error) {
	return s.resv, s.err
}

type stubReservationExtender struct {
	resv domain.Reservation
	err  error
}

func (s *stubReservationExtender) Extend(_ context.Context, _ string, _ time.Duration) (domain.Reservation, error) {
	return s.resv, s.err
}
