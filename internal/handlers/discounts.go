package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Roshan-Lodhi/Shoplane/internal/platform/httpx"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

const maxDiscountPreviewBodySize = 4 * 1024

// DiscountPreviewHandlers lets the storefront check a discount code against a
// cart total before checkout. Evaluation never consumes a redemption; usage
// is only counted when a verified payment is finalized.
type DiscountPreviewHandlers struct {
	discounts services.DiscountService
}

// NewDiscountPreviewHandlers constructs the public discount preview handler.
func NewDiscountPreviewHandlers(discounts services.DiscountService) *DiscountPreviewHandlers {
	return &DiscountPreviewHandlers{discounts: discounts}
}

// Routes wires the preview endpoint onto the provided router.
func (h *DiscountPreviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/discounts/preview", h.preview)
}

type discountPreviewRequest struct {
	Code      string `json:"code"`
	CartTotal int64  `json:"cartTotal"`
}

type discountPreviewResponse struct {
	Code           string `json:"code"`
	Type           string `json:"type"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalTotal     int64  `json:"finalTotal"`
}

func (h *DiscountPreviewHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxDiscountPreviewBodySize)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req discountPreviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.CartTotal < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "cartTotal must not be negative", http.StatusBadRequest))
		return
	}

	applied, err := h.discounts.Evaluate(ctx, strings.TrimSpace(req.Code), req.CartTotal)
	if err != nil {
		writeDiscountEvaluationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, discountPreviewResponse{
		Code:           applied.Code,
		Type:           string(applied.Type),
		DiscountAmount: applied.Amount,
		FinalTotal:     req.CartTotal - applied.Amount,
	})
}

func writeDiscountEvaluationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDiscountInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount code not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountInactive):
		httpx.WriteError(ctx, w, httpx.NewError("discount_inactive", "discount code is not active", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrDiscountOutOfWindow):
		httpx.WriteError(ctx, w, httpx.NewError("discount_out_of_window", "discount code is outside its validity window", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrDiscountUsageExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("discount_usage_exceeded", "discount code usage limit reached", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrDiscountBelowMinimum):
		httpx.WriteError(ctx, w, httpx.NewError("discount_below_minimum", "cart total below the minimum purchase amount", http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("discount_error", "failed to evaluate discount code", http.StatusInternalServerError))
	}
}
