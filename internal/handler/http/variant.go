package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sneakrush/api/internal/service"
	"github.com/sneakrush/api/pkg/httputil"
	"github.com/sneakrush/api/pkg/validator"
)

// VariantHandler handles HTTP requests for size-variant stock endpoints.
type VariantHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(svc *service.InventoryService, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{
		service: svc,
		logger:  logger,
	}
}

// SetStockRequest is the JSON request body for an absolute stock adjustment.
type SetStockRequest struct {
	StockQty int `json:"stock_qty" validate:"gte=0"`
}

// GetVariant handles GET /api/v1/variants/{id}
func (h *VariantHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	variant, err := h.service.GetVariant(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variant})
}

// SetStock handles PUT /api/v1/variants/{id}/stock (admin only)
func (h *VariantHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	variant, err := h.service.SetStock(r.Context(), id.String(), req.StockQty)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variant})
}
