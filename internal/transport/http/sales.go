package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// SaleAdmin enrolls variants in flash sale windows.
type SaleAdmin interface {
	CreateSale(ctx context.Context, in app.CreateSaleInput) (domain.FlashSale, error)
	ListSales(ctx context.Context) ([]domain.FlashSale, error)
}

// HandleAdminFlashSales serves GET/POST /admin/flash-sales.
func HandleAdminFlashSales(svc SaleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sales, err := svc.ListSales(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]saleResponse, 0, len(sales))
			for _, sale := range sales {
				resp = append(resp, toSaleResponse(sale))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			handleCreateFlashSale(svc, w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleCreateFlashSale(svc SaleAdmin, w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
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

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid starts_at format")
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid ends_at format")
		return
	}

	sale, err := svc.CreateSale(r.Context(), app.CreateSaleInput{
		VariantID:     req.VariantID,
		QuantityLimit: req.QuantityLimit,
		MaxPerUser:    req.MaxPerUser,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toSaleResponse(sale))
}

type createSaleRequest struct {
	VariantID     string `json:"variant_id"`
	QuantityLimit int    `json:"quantity_limit"`
	MaxPerUser    int    `json:"max_per_user"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
}

type saleResponse struct {
	ID            string    `json:"id"`
	VariantID     string    `json:"variant_id"`
	QuantityLimit int       `json:"quantity_limit"`
	SoldCount     int       `json:"sold_count"`
	MaxPerUser    int       `json:"max_per_user"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

func toSaleResponse(sale domain.FlashSale) saleResponse {
	return saleResponse{
		ID:            sale.ID,
		VariantID:     sale.VariantID,
		QuantityLimit: sale.QuantityLimit,
		SoldCount:     sale.SoldCount,
		MaxPerUser:    sale.MaxPerUser,
		StartsAt:      sale.StartsAt,
		EndsAt:        sale.EndsAt,
	}
}
