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

// StockAdmin is the admin/audit surface over variants and the ledger.
type StockAdmin interface {
	CreateVariant(ctx context.Context, in app.CreateVariantInput) (domain.VariantStock, error)
	Variants(ctx context.Context) ([]domain.VariantStock, error)
	Adjust(ctx context.Context, in app.AdjustInput) (domain.VariantStock, error)
	Ledger(ctx context.Context, variantID string) ([]domain.LedgerEntry, error)
	CheckConsistency(ctx context.Context, variantID string) (domain.VariantStock, error)
}

// HandleAdminVariants serves GET/POST /admin/variants.
func HandleAdminVariants(svc StockAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			variants, err := svc.Variants(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]variantResponse, 0, len(variants))
			for _, v := range variants {
				resp = append(resp, toVariantResponse(v))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createVariantRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.SKU == "" {
				writeError(w, http.StatusBadRequest, codeInvalidID, "sku is required")
				return
			}

			tracked := true
			if req.Tracked != nil {
				tracked = *req.Tracked
			}
			v, err := svc.CreateVariant(r.Context(), app.CreateVariantInput{
				SKU:               req.SKU,
				InitialOnHand:     req.InitialOnHand,
				MinimumStockLevel: req.MinimumStockLevel,
				Tracked:           tracked,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toVariantResponse(v))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminVariantOps serves POST /admin/variants/{id}/adjust,
// GET /admin/variants/{id}/ledger and POST /admin/variants/{id}/verify.
func HandleAdminVariantOps(svc StockAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, action, ok := parseAdminVariantPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "adjust":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			var req adjustRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			v, err := svc.Adjust(r.Context(), app.AdjustInput{
				VariantID: variantID,
				Delta:     req.Delta,
				Reason:    domain.LedgerReason(req.Reason),
				OrderID:   req.OrderID,
				UserID:    req.UserID,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toVariantResponse(v))
		case "ledger":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			entries, err := svc.Ledger(r.Context(), variantID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]ledgerEntryResponse, 0, len(entries))
			for _, e := range entries {
				resp = append(resp, ledgerEntryResponse{
					LogID:          e.ID,
					Seq:            e.Seq,
					VariantID:      e.VariantID,
					QuantityChange: e.QuantityChange,
					Reason:         string(e.Reason),
					OrderID:        e.OrderID,
					UserID:         e.UserID,
					CreatedAt:      e.CreatedAt,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case "verify":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			v, err := svc.CheckConsistency(r.Context(), variantID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toVariantResponse(v))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseAdminVariantPath(path string) (variantID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "variants" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

type createVariantRequest struct {
	SKU               string `json:"sku"`
	InitialOnHand     int    `json:"initial_on_hand"`
	MinimumStockLevel int    `json:"minimum_stock_level"`
	Tracked           *bool  `json:"tracked"`
}

type adjustRequest struct {
	Delta   int    `json:"delta"`
	Reason  string `json:"reason"`
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type variantResponse struct {
	VariantID         string `json:"variant_id"`
	SKU               string `json:"sku"`
	OnHand            int    `json:"on_hand"`
	Reserved          int    `json:"reserved"`
	Available         int    `json:"available"`
	MinimumStockLevel int    `json:"minimum_stock_level"`
	Tracked           bool   `json:"tracked"`
	Frozen            bool   `json:"frozen"`
}

func toVariantResponse(v domain.VariantStock) variantResponse {
	return variantResponse{
		VariantID:         v.VariantID,
		SKU:               v.SKU,
		OnHand:            v.OnHand,
		Reserved:          v.Reserved,
		Available:         v.Available(),
		MinimumStockLevel: v.MinimumStockLevel,
		Tracked:           v.Tracked,
		Frozen:            v.Frozen,
	}
}

type ledgerEntryResponse struct {
	LogID          string    `json:"log_id"`
	Seq            int64     `json:"seq"`
	VariantID      string    `json:"variant_id"`
	QuantityChange int       `json:"quantity_change"`
	Reason         string    `json:"reason"`
	OrderID        string    `json:"order_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
