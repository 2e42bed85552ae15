package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Roshan-Lodhi/Shoplane/internal/platform/httpx"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

const maxWebhookRequestBody = 64 * 1024

// WebhookHandlers ingests asynchronous payment gateway notifications.
// Request authentication is owned by the webhook group middleware; by the
// time a request reaches these handlers its signature has been validated.
type WebhookHandlers struct {
	checkout services.CheckoutService
}

// NewWebhookHandlers constructs webhook handlers over the checkout service.
func NewWebhookHandlers(checkout services.CheckoutService) *WebhookHandlers {
	return &WebhookHandlers{checkout: checkout}
}

// Routes registers webhook endpoints under the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payments/razorpay", h.gatewayEvent)
}

// gatewayEventRequest mirrors the gateway's webhook envelope.
type gatewayEventRequest struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type gatewayEventResponse struct {
	Status  string `json:"status"`
	Matched bool   `json:"matched"`
	OrderID string `json:"orderId,omitempty"`
}

func (h *WebhookHandlers) gatewayEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxWebhookRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body unreadable or too large", http.StatusBadRequest))
		return
	}
	var payload gatewayEventRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed event payload", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.ReconcileGatewayEvent(ctx, services.GatewayEventCommand{
		EventType: payload.Event,
		OrderID:   payload.Payload.Payment.Entity.OrderID,
		PaymentID: payload.Payload.Payment.Entity.ID,
		Amount:    payload.Payload.Payment.Entity.Amount,
		Currency:  payload.Payload.Payment.Entity.Currency,
	})
	if err != nil {
		if errors.Is(err, services.ErrCheckoutInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to process gateway event", http.StatusInternalServerError))
		return
	}

	// Unmatched notifications are acknowledged as accepted so the sender
	// does not retry indefinitely while the client-side finalize is in flight.
	status := http.StatusOK
	if !result.Known {
		status = http.StatusAccepted
	}
	writeJSONResponse(w, status, gatewayEventResponse{
		Status:  "ok",
		Matched: result.Known,
		OrderID: result.OrderID,
	})
}
