package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

func TestHandleOpenOrderLine(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	line := domain.OrderLine{
		ID:            "line-1",
		OrderID:       "order-1",
		VariantID:     "v1",
		ReservationID: "resv-1",
		Quantity:      2,
		State:         domain.OrderLineReserved,
		CreatedAt:     now,
		UpdatedAt:     now,
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
			body:           `{"order_id":"order-1","reservation_id":"resv-1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"state":"reserved"`,
		},
		{
			name:           "missing reservation id",
			body:           `{"order_id":"order-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{"order_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "dead reservation",
			body:           `{"order_id":"order-1","reservation_id":"resv-1"}`,
			serviceErr:     domain.ErrReservationInvalid,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubFulfillmentGateway{line: line, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/order-lines", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleOpenOrderLine(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleOrderLineActions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	committed := domain.OrderLine{
		ID:        "line-1",
		OrderID:   "order-1",
		VariantID: "v1",
		Quantity:  2,
		State:     domain.OrderLineCommitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tests := []struct {
		name           string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "capture",
			path:           "/order-lines/line-1/capture",
			body:           `{"user_id":"buyer-1"}`,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"state":"committed"`,
		},
		{
			name:           "capture with empty body",
			path:           "/order-lines/line-1/capture",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "payment failure",
			path:           "/order-lines/line-1/fail",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "payment failure after capture",
			path:           "/order-lines/line-1/fail",
			serviceErr:     domain.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "cancel",
			path:           "/order-lines/line-1/cancel",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "return",
			path:           "/order-lines/line-1/return",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "capture over sale cap",
			path:           "/order-lines/line-1/capture",
			serviceErr:     domain.ErrCapExceeded,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"cap_exceeded"`,
		},
		{
			name:           "invalid transition",
			path:           "/order-lines/line-1/return",
			serviceErr:     domain.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown line",
			path:           "/order-lines/missing/capture",
			serviceErr:     domain.ErrOrderLineNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown action",
			path:           "/order-lines/line-1/ship",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubFulfillmentGateway{line: committed, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleOrderLineActions(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubFulfillmentGateway struct {
	line domain.OrderLine
	err  error
}

func (s *stubFulfillmentGateway) OpenLine(_ context.Context, _ app.OpenLineInput) (domain.OrderLine, error) {
	return s.line, s.err
}

func (s *stubFulfillmentGateway) CapturePayment(_ context.Context, _, _ string) (domain.OrderLine, error) {
	return s.line, s.err
}

func (s *stubFulfillmentGateway) FailPayment(_ context.Context, _ string) (domain.OrderLine, error) {
	return s.line, s.err
}

func (s *stubFulfillmentGateway) Cancel(_ context.Context, _, _ string) (domain.OrderLine, error) {
	return s.line, s.err
}

func (s *stubFulfillmentGateway) Return(_ context.Context, _, _ string) (domain.OrderLine, error) {
	return s.line, s.err
}
