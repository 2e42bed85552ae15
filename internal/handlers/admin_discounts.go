package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/platform/auth"
	"github.com/Roshan-Lodhi/Shoplane/internal/platform/httpx"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

const maxDiscountBodySize = 8 * 1024

// AdminDiscountHandlers exposes discount code management to admin users.
type AdminDiscountHandlers struct {
	authn     *auth.Authenticator
	discounts services.DiscountService
}

// NewAdminDiscountHandlers constructs admin-only discount handlers.
func NewAdminDiscountHandlers(authn *auth.Authenticator, discounts services.DiscountService) *AdminDiscountHandlers {
	return &AdminDiscountHandlers{
		authn:     authn,
		discounts: discounts,
	}
}

// Routes wires the /admin/discounts endpoints onto the provided router.
func (h *AdminDiscountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireFirebaseAuth("admin"))
	}
	group.Route("/discounts", func(dr chi.Router) {
		dr.Get("/", h.listCodes)
		dr.Post("/", h.createCode)
		dr.Get("/{discountID}", h.getCode)
		dr.Put("/{discountID}", h.updateCode)
		dr.Delete("/{discountID}", h.deleteCode)
	})
}

type discountRequest struct {
	Code              string `json:"code"`
	Type              string `json:"type"`
	Value             int64  `json:"value"`
	Active            bool   `json:"active"`
	ValidFrom         string `json:"validFrom,omitempty"`
	ValidUntil        string `json:"validUntil,omitempty"`
	MaxUses           int64  `json:"maxUses,omitempty"`
	MinPurchaseAmount int64  `json:"minPurchaseAmount,omitempty"`
}

type discountPayload struct {
	ID                string `json:"id"`
	Code              string `json:"code"`
	Type              string `json:"type"`
	Value             int64  `json:"value"`
	Active            bool   `json:"active"`
	ValidFrom         string `json:"validFrom,omitempty"`
	ValidUntil        string `json:"validUntil,omitempty"`
	MaxUses           int64  `json:"maxUses,omitempty"`
	CurrentUses       int64  `json:"currentUses"`
	MinPurchaseAmount int64  `json:"minPurchaseAmount,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

type discountListResponse struct {
	Discounts     []discountPayload `json:"discounts"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

func buildDiscountPayload(code domain.DiscountCode) discountPayload {
	return discountPayload{
		ID:                code.ID,
		Code:              code.Code,
		Type:              string(code.Type),
		Value:             code.Value,
		Active:            code.Active,
		ValidFrom:         formatTime(code.ValidFrom),
		ValidUntil:        formatTime(code.ValidUntil),
		MaxUses:           code.MaxUses,
		CurrentUses:       code.CurrentUses,
		MinPurchaseAmount: code.MinPurchaseAmount,
		CreatedAt:         formatTime(code.CreatedAt),
		UpdatedAt:         formatTime(code.UpdatedAt),
	}
}

func (h *AdminDiscountHandlers) decodeDiscountRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.UpsertDiscountCommand, bool) {
	body, err := readLimitedBody(r, maxDiscountBodySize)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return services.UpsertDiscountCommand{}, false
	}

	var req discountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return services.UpsertDiscountCommand{}, false
	}

	cmd := services.UpsertDiscountCommand{
		Code:              strings.TrimSpace(req.Code),
		Type:              domain.DiscountType(strings.TrimSpace(req.Type)),
		Value:             req.Value,
		Active:            req.Active,
		MaxUses:           req.MaxUses,
		MinPurchaseAmount: req.MinPurchaseAmount,
	}
	if raw := strings.TrimSpace(req.ValidFrom); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "validFrom must be RFC3339", http.StatusBadRequest))
			return services.UpsertDiscountCommand{}, false
		}
		cmd.ValidFrom = ts
	}
	if raw := strings.TrimSpace(req.ValidUntil); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "validUntil must be RFC3339", http.StatusBadRequest))
			return services.UpsertDiscountCommand{}, false
		}
		cmd.ValidUntil = ts
	}
	return cmd, true
}

func (h *AdminDiscountHandlers) listCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := h.discounts.ListCodes(ctx, services.DiscountListFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Pagination: paginationFromQuery(r),
	})
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}

	resp := discountListResponse{
		Discounts:     make([]discountPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, code := range page.Items {
		resp.Discounts = append(resp.Discounts, buildDiscountPayload(code))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminDiscountHandlers) createCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.decodeDiscountRequest(ctx, w, r)
	if !ok {
		return
	}

	code, err := h.discounts.CreateCode(ctx, cmd)
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]discountPayload{"discount": buildDiscountPayload(code)})
}

func (h *AdminDiscountHandlers) getCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	code, err := h.discounts.GetCode(ctx, chi.URLParam(r, "discountID"))
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]discountPayload{"discount": buildDiscountPayload(code)})
}

func (h *AdminDiscountHandlers) updateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.decodeDiscountRequest(ctx, w, r)
	if !ok {
		return
	}
	cmd.DiscountID = chi.URLParam(r, "discountID")

	code, err := h.discounts.UpdateCode(ctx, cmd)
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]discountPayload{"discount": buildDiscountPayload(code)})
}

func (h *AdminDiscountHandlers) deleteCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("discount_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.discounts.DeleteCode(ctx, chi.URLParam(r, "discountID")); err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminDiscountHandlers) writeDiscountError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDiscountInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount code not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountCodeExists):
		httpx.WriteError(ctx, w, httpx.NewError("discount_exists", "discount code already exists", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("discount_error", "failed to process discount request", http.StatusInternalServerError))
	}
}
