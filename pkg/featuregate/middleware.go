package featuregate

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitlab/coachbill/pkg/plan"
)

// SubscriberExtractor pulls the subscriber id out of the request. The
// default reads the chi "id" URL parameter.
type SubscriberExtractor func(r *http.Request) (uuid.UUID, error)

// URLParamExtractor extracts the subscriber id from a chi URL parameter.
func URLParamExtractor(param string) SubscriberExtractor {
	return func(r *http.Request) (uuid.UUID, error) {
		return uuid.Parse(chi.URLParam(r, param))
	}
}

// Middleware gates a route on a feature. Requests whose resolved plan
// lacks the feature receive the uniform 403 payload; a malformed
// subscriber id is a 400.
func Middleware(gate *Gate, feature plan.Feature, humanName string, extract SubscriberExtractor) func(http.Handler) http.Handler {
	if extract == nil {
		extract = URLParamExtractor("id")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subscriberID, err := extract(r)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": "invalid subscriber id",
				})
				return
			}

			// Authorization always hits current storage state; the display
			// cache is never consulted here.
			res := gate.Require(r.Context(), subscriberID, feature, humanName)
			if !res.Allowed {
				writeJSON(w, http.StatusForbidden, res.Denial)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
