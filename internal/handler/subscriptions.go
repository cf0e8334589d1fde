package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/subscription"
)

// SubscriptionsHandler exposes plan changes and cancellation intents.
type SubscriptionsHandler struct {
	svc *subscription.Service
	log *slog.Logger
}

// NewSubscriptionsHandler creates the handler.
func NewSubscriptionsHandler(svc *subscription.Service, log *slog.Logger) *SubscriptionsHandler {
	if svc == nil {
		panic("handler.NewSubscriptionsHandler: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SubscriptionsHandler{svc: svc, log: log}
}

type changePlanRequest struct {
	SubscriberID uuid.UUID `json:"subscriberId"`
	PlanID       string    `json:"planId"`
}

type subscriptionResponse struct {
	SubscriptionID    uuid.UUID  `json:"subscriptionId"`
	PlanID            string     `json:"planId"`
	Status            string     `json:"status"`
	PeriodStart       time.Time  `json:"periodStart"`
	PeriodEnd         time.Time  `json:"periodEnd"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CanceledAt        *time.Time `json:"canceledAt,omitempty"`
}

func toSubscriptionResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		SubscriptionID:    sub.ID,
		PlanID:            sub.PlanID,
		Status:            string(sub.Status),
		PeriodStart:       sub.CurrentPeriodStart,
		PeriodEnd:         sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CanceledAt:        sub.CanceledAt,
	}
}

// ChangePlan handles POST /v1/subscriptions/change-plan.
func (h *SubscriptionsHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	var req changePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed request body")
		return
	}
	if req.SubscriberID == uuid.Nil || req.PlanID == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "subscriberId and planId are required")
		return
	}

	sub, err := h.svc.ChangePlan(r.Context(), req.SubscriberID, req.PlanID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
	case errors.Is(err, plan.ErrPlanNotFound):
		respondError(w, http.StatusBadRequest, "unknown_plan", "unknown plan id")
	case errors.Is(err, subscription.ErrSamePlan):
		respondError(w, http.StatusBadRequest, "same_plan", "subscriber is already on this plan")
	case errors.Is(err, subscription.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", "a concurrent change already replaced this subscription")
	default:
		respondInternal(w, r, h.log, err)
	}
}

type subscriberRequest struct {
	SubscriberID uuid.UUID `json:"subscriberId"`
}

// Cancel handles POST /v1/subscriptions/cancel. The subscription stays
// active until the paid-through date; only the intent flag changes.
func (h *SubscriptionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req subscriberRequest
	if err := decodeJSON(r, &req); err != nil || req.SubscriberID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "subscriberId is required")
		return
	}

	sub, err := h.svc.CancelAtPeriodEnd(r.Context(), req.SubscriberID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no active subscription")
	default:
		respondInternal(w, r, h.log, err)
	}
}

// Reactivate handles POST /v1/subscriptions/reactivate, clearing a
// pending cancellation before the period ends.
func (h *SubscriptionsHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	var req subscriberRequest
	if err := decodeJSON(r, &req); err != nil || req.SubscriberID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "subscriberId is required")
		return
	}

	sub, err := h.svc.Reactivate(r.Context(), req.SubscriberID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no active subscription")
	case errors.Is(err, subscription.ErrNotCancelable):
		respondError(w, http.StatusBadRequest, "not_cancelable", "subscription has no pending cancellation")
	default:
		respondInternal(w, r, h.log, err)
	}
}
