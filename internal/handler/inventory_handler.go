package handler

import (
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Inventory Handlers
// ============================================================

func listInventoryHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/inventory")
		defer span.End()

		items, err := svc.List(ctx, r.URL.Query().Get("location_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if items == nil {
			items = []domain.InventoryItem{}
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.InventoryItem]{Data: items, Total: len(items)})
	}
}

func inventoryTotalsHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/inventory/totals")
		defer span.End()

		totals, err := svc.Totals(ctx, r.URL.Query().Get("location_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}

func setStockHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/inventory/{productId}/{locationId}")
		defer span.End()

		var req domain.SetStockRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := svc.SetStock(ctx, chi.URLParam(r, "productId"), chi.URLParam(r, "locationId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func adjustStockHandler(svc *service.InventoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/inventory/{productId}/{locationId}/adjust")
		defer span.End()

		var req domain.AdjustStockRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := svc.AdjustStock(ctx, chi.URLParam(r, "productId"), chi.URLParam(r, "locationId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}
