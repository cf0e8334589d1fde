package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/entitlement"
	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/subscription"
)

// EntitlementsHandler serves the read-only entitlement view used by
// client apps to draw menus and lock icons. It is the only consumer of
// the display cache; authorization decisions never come through here.
type EntitlementsHandler struct {
	resolver *entitlement.Resolver
	cache    entitlement.DisplayCache
	log      *slog.Logger
}

// NewEntitlementsHandler creates the handler. The cache is optional; nil
// disables display caching entirely.
func NewEntitlementsHandler(resolver *entitlement.Resolver, cache entitlement.DisplayCache, log *slog.Logger) *EntitlementsHandler {
	if resolver == nil {
		panic("handler.NewEntitlementsHandler: nil resolver")
	}
	if log == nil {
		log = slog.Default()
	}
	return &EntitlementsHandler{resolver: resolver, cache: cache, log: log}
}

type entitlementsResponse struct {
	PlanID             string                `json:"planId,omitempty"`
	PlanName           string                `json:"planName,omitempty"`
	AccessStatus       string                `json:"accessStatus"`
	Features           map[plan.Feature]bool `json:"features"`
	CurrentPeriodStart *time.Time            `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time            `json:"currentPeriodEnd,omitempty"`
}

// Get handles GET /v1/subscribers/{id}/entitlements. The optional
// role=student query parameter resolves through the student's coach
// instead of the subscriber's own ledger.
func (h *EntitlementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid subscriber id")
		return
	}

	resolve := h.resolver.ResolveCoach
	if r.URL.Query().Get("role") == "student" {
		resolve = h.resolver.ResolveStudent
	}

	if h.cache != nil {
		if info, ok := h.cache.Get(r.Context(), subscriberID); ok {
			respondJSON(w, http.StatusOK, toEntitlementsResponse(info))
			return
		}
	}

	info, err := resolve(r.Context(), subscriberID)
	if err != nil {
		respondInternal(w, r, h.log, err)
		return
	}

	// Only entitled results are cached; a nil result is cheap to
	// recompute and callers expect lockouts to clear promptly.
	if h.cache != nil && info != nil {
		h.cache.Set(r.Context(), subscriberID, info)
	}
	respondJSON(w, http.StatusOK, toEntitlementsResponse(info))
}

func toEntitlementsResponse(info *entitlement.PlanInfo) entitlementsResponse {
	if info == nil {
		return entitlementsResponse{
			AccessStatus: string(subscription.AccessInactive),
			Features:     plan.FeatureSet{}.Map(),
		}
	}
	return entitlementsResponse{
		PlanID:             info.PlanID,
		PlanName:           info.PlanName,
		AccessStatus:       string(info.AccessStatus),
		Features:           info.Features.Map(),
		CurrentPeriodStart: info.CurrentPeriodStart,
		CurrentPeriodEnd:   info.CurrentPeriodEnd,
	}
}
