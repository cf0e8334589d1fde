package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/preference"
)

// PreferencesHandler exposes the student discipline/level preference
// with its once-per-billing-period change lock.
type PreferencesHandler struct {
	svc *preference.Service
	log *slog.Logger
}

// NewPreferencesHandler creates the handler.
func NewPreferencesHandler(svc *preference.Service, log *slog.Logger) *PreferencesHandler {
	if svc == nil {
		panic("handler.NewPreferencesHandler: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PreferencesHandler{svc: svc, log: log}
}

type preferenceRequest struct {
	DisciplineID uuid.UUID `json:"disciplineId"`
	LevelID      uuid.UUID `json:"levelId"`
}

type preferenceResponse struct {
	StudentID    uuid.UUID  `json:"studentId"`
	DisciplineID uuid.UUID  `json:"disciplineId"`
	LevelID      uuid.UUID  `json:"levelId"`
	LastChangeAt *time.Time `json:"lastChangeAt,omitempty"`
}

type preferenceLockedResponse struct {
	Code           string    `json:"code"`
	Message        string    `json:"error"`
	NextChangeDate time.Time `json:"nextChangeDate"`
}

func toPreferenceResponse(pref *preference.Preference) preferenceResponse {
	return preferenceResponse{
		StudentID:    pref.StudentID,
		DisciplineID: pref.DisciplineID,
		LevelID:      pref.LevelID,
		LastChangeAt: pref.LastChangeAt,
	}
}

// Update handles PUT /v1/students/{id}/preference. A change denied by
// the period lock is a 403 carrying the date the window reopens.
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid student id")
		return
	}

	var req preferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed request body")
		return
	}

	pref, err := h.svc.Update(r.Context(), preference.Change{
		StudentID:    studentID,
		DisciplineID: req.DisciplineID,
		LevelID:      req.LevelID,
	})
	if err != nil {
		if locked, ok := preference.IsLocked(err); ok {
			respondJSON(w, http.StatusForbidden, preferenceLockedResponse{
				Code:           "PREFERENCE_CHANGE_LOCKED",
				Message:        "preference already changed this billing period",
				NextChangeDate: locked.NextEligibleAt,
			})
			return
		}
		if errors.Is(err, preference.ErrInvalidPreference) {
			respondError(w, http.StatusBadRequest, "invalid_body", "disciplineId and levelId are required")
			return
		}
		respondInternal(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toPreferenceResponse(pref))
}

// Get handles GET /v1/students/{id}/preference. It reports the current
// selection and whether a change would be accepted right now, without
// consuming the change slot.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid student id")
		return
	}

	decision, err := h.svc.Check(r.Context(), studentID)
	if err != nil {
		respondInternal(w, r, h.log, err)
		return
	}

	resp := struct {
		Preference     *preferenceResponse `json:"preference"`
		ChangeAllowed  bool                `json:"changeAllowed"`
		NextChangeDate *time.Time          `json:"nextChangeDate,omitempty"`
	}{
		ChangeAllowed:  decision.Allowed,
		NextChangeDate: decision.NextEligibleAt,
	}

	pref, err := h.svc.Get(r.Context(), studentID)
	switch {
	case err == nil:
		pr := toPreferenceResponse(pref)
		resp.Preference = &pr
	case errors.Is(err, preference.ErrPreferenceNotFound):
		// no selection yet, preference stays null
	default:
		respondInternal(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
