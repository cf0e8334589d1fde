package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/scorelog"
)

// ScoresHandler logs and lists RM scores. The route is mounted behind
// the score_loading feature gate; by the time a request reaches here the
// entitlement check already passed (or failed open).
type ScoresHandler struct {
	store scorelog.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewScoresHandler creates the handler.
func NewScoresHandler(store scorelog.Store, log *slog.Logger) *ScoresHandler {
	if store == nil {
		panic("handler.NewScoresHandler: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ScoresHandler{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type scoreRequest struct {
	Exercise   string     `json:"exercise"`
	Reps       int        `json:"reps"`
	WeightKg   float64    `json:"weightKg"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

// Create handles POST /v1/students/{id}/scores.
func (h *ScoresHandler) Create(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid student id")
		return
	}

	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed request body")
		return
	}
	if strings.TrimSpace(req.Exercise) == "" || req.Reps <= 0 || req.WeightKg < 0 {
		respondError(w, http.StatusBadRequest, "invalid_body", "exercise, positive reps, and non-negative weightKg are required")
		return
	}

	now := h.now()
	recordedAt := now
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	score := &scorelog.Score{
		ID:         uuid.New(),
		StudentID:  studentID,
		Exercise:   strings.TrimSpace(req.Exercise),
		Reps:       req.Reps,
		WeightKg:   req.WeightKg,
		RecordedAt: recordedAt,
		CreatedAt:  now,
	}
	if err := h.store.Create(r.Context(), score); err != nil {
		respondInternal(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, score)
}

// List handles GET /v1/students/{id}/scores.
func (h *ScoresHandler) List(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid student id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
	}

	scores, err := h.store.ListByStudent(r.Context(), studentID, limit)
	if err != nil {
		respondInternal(w, r, h.log, err)
		return
	}
	if scores == nil {
		scores = []scorelog.Score{}
	}
	respondJSON(w, http.StatusOK, scores)
}
