package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/subscription"
)

// WebhooksHandler ingests normalized payment events. Delivery is
// at-least-once, so the endpoint must be idempotent: the subscription
// service deduplicates on the external payment id and a redelivery is
// acknowledged without moving the ledger.
type WebhooksHandler struct {
	svc *subscription.Service
	log *slog.Logger
}

// NewWebhooksHandler creates the handler.
func NewWebhooksHandler(svc *subscription.Service, log *slog.Logger) *WebhooksHandler {
	if svc == nil {
		panic("handler.NewWebhooksHandler: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhooksHandler{svc: svc, log: log}
}

// Payment handles POST /v1/webhooks/payment. Accepted events answer 202
// regardless of whether they changed anything; the provider only needs
// to know the delivery landed.
func (h *WebhooksHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var ev subscription.PaymentEvent
	if err := decodeJSON(r, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed payment event")
		return
	}
	if ev.ExternalPaymentID == "" || ev.SubscriberID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "externalPaymentId and subscriberId are required")
		return
	}
	switch ev.Outcome {
	case subscription.PaymentSucceeded, subscription.PaymentFailed:
	default:
		respondError(w, http.StatusBadRequest, "invalid_body", "outcome must be succeeded or failed")
		return
	}

	if err := h.svc.ApplyPaymentEvent(r.Context(), ev); err != nil {
		respondInternal(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
