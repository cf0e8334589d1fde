package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlab/coachbill/internal/handler"
	"github.com/fitlab/coachbill/pkg/entitlement"
	"github.com/fitlab/coachbill/pkg/featuregate"
	"github.com/fitlab/coachbill/pkg/plan"
	"github.com/fitlab/coachbill/pkg/preference"
	"github.com/fitlab/coachbill/pkg/scorelog"
	"github.com/fitlab/coachbill/pkg/subscription"
)

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

type testEnv struct {
	router        http.Handler
	subs          *subscription.MemoryStore
	relationships *entitlement.MemoryRelationshipStore
	trials        *entitlement.MemoryTrialStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(
		plan.Plan{
			ID:       "coach_start_monthly",
			Name:     "Start",
			Audience: plan.AudienceCoach,
			Interval: plan.BillingIntervalMonthly,
			Tier:     1,
			Public:   true,
			Features: plan.FeatureSet{
				SchemaVersion:  plan.FeatureSchemaVersion,
				WorkoutBuilder: true,
			},
		},
		plan.Plan{
			ID:       "coach_power_monthly",
			Name:     "Power",
			Audience: plan.AudienceCoach,
			Interval: plan.BillingIntervalMonthly,
			Tier:     3,
			Public:   true,
			Features: plan.FeatureSet{
				SchemaVersion:   plan.FeatureSchemaVersion,
				ScoreLoading:    true,
				WorkoutBuilder:  true,
				VideoAnalysis:   true,
				ProgressReports: true,
			},
		},
	))
	require.NoError(t, err)

	log := slog.New(slog.DiscardHandler)
	clock := func() time.Time { return testNow }

	subs := subscription.NewMemoryStore()
	relationships := entitlement.NewMemoryRelationshipStore()
	trials := entitlement.NewMemoryTrialStore()
	prefs := preference.NewMemoryStore()
	scores := scorelog.NewMemoryStore()

	subSvc := subscription.NewService(subs, catalog,
		subscription.WithClock(clock), subscription.WithLogger(log))
	prefSvc := preference.NewService(prefs, subs,
		preference.WithClock(clock), preference.WithLogger(log))
	resolver := entitlement.NewResolver(subs, relationships, trials, catalog,
		entitlement.WithClock(clock), entitlement.WithLogger(log))
	gate := featuregate.New(resolver.ResolveStudent, log)

	router := handler.NewRouter(handler.RouterDeps{
		Entitlements:  handler.NewEntitlementsHandler(resolver, nil, log),
		Subscriptions: handler.NewSubscriptionsHandler(subSvc, log),
		Preferences:   handler.NewPreferencesHandler(prefSvc, log),
		Webhooks:      handler.NewWebhooksHandler(subSvc, log),
		Scores:        handler.NewScoresHandler(scores, log),
		ScoreGate:     gate,
		Log:           log,
	})

	return &testEnv{
		router:        router,
		subs:          subs,
		relationships: relationships,
		trials:        trials,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCoachUpgradeUnlocksStudentScores(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	coachID := uuid.New()
	studentID := uuid.New()
	env.relationships.Link(studentID, coachID)

	// Coach starts on the Start plan, which has no score loading.
	rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": coachID,
		"planId":       "coach_start_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	scoreBody := map[string]any{"exercise": "back squat", "reps": 5, "weightKg": 120}
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/students/%s/scores", studentID), scoreBody)
	require.Equal(t, http.StatusForbidden, rec.Code)
	denial := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "FEATURE_NOT_AVAILABLE", denial["code"])
	assert.Equal(t, "score_loading", denial["feature"])

	// Upgrade to Power. The student's entitlements follow the coach
	// immediately, no re-login or cache flush involved.
	rec = env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": coachID,
		"planId":       "coach_power_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/students/%s/scores", studentID), scoreBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/students/%s/scores", studentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scores := decodeBody[[]map[string]any](t, rec)
	require.Len(t, scores, 1)
	assert.Equal(t, "back squat", scores[0]["exercise"])
}

func TestChangePlanValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	coachID := uuid.New()

	t.Run("unknown plan", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
			"subscriberId": coachID,
			"planId":       "coach_diamond_monthly",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("same plan", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
			"subscriberId": coachID,
			"planId":       "coach_start_monthly",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
			"subscriberId": coachID,
			"planId":       "coach_start_monthly",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "same_plan", body["code"])
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEntitlementsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	coachID := uuid.New()
	studentID := uuid.New()
	env.relationships.Link(studentID, coachID)

	rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": coachID,
		"planId":       "coach_power_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("coach sees own plan", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/v1/subscribers/%s/entitlements", coachID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "Power", body["planName"])
		assert.Equal(t, "active", body["accessStatus"])
		features := body["features"].(map[string]any)
		assert.Equal(t, true, features["score_loading"])
		assert.Equal(t, false, features["forum_access"])
	})

	t.Run("student mirrors coach", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/v1/subscribers/%s/entitlements?role=student", studentID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "Power", body["planName"])
	})

	t.Run("unlinked student is inactive", func(t *testing.T) {
		orphan := uuid.New()
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/v1/subscribers/%s/entitlements?role=student", orphan), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "inactive", body["accessStatus"])
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/subscribers/not-a-uuid/entitlements", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPreferenceLockOverAPI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	studentID := uuid.New()

	// Give the student their own active subscription so the lock applies.
	rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": studentID,
		"planId":       "coach_start_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decodeBody[map[string]any](t, rec)
	periodEnd, err := time.Parse(time.RFC3339, sub["periodEnd"].(string))
	require.NoError(t, err)

	prefBody := map[string]any{"disciplineId": uuid.New(), "levelId": uuid.New()}
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/v1/students/%s/preference", studentID), prefBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second change in the same period is locked until renewal.
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/v1/students/%s/preference", studentID), map[string]any{
		"disciplineId": uuid.New(), "levelId": uuid.New(),
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	locked := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "PREFERENCE_CHANGE_LOCKED", locked["code"])
	next, err := time.Parse(time.RFC3339, locked["nextChangeDate"].(string))
	require.NoError(t, err)
	assert.True(t, next.Equal(periodEnd))

	// The read endpoint reports the lock without consuming anything.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/students/%s/preference", studentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, status["changeAllowed"])
	assert.NotNil(t, status["preference"])
}

func TestPaymentWebhookIdempotency(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	coachID := uuid.New()

	rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": coachID,
		"planId":       "coach_start_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	event := map[string]any{
		"externalPaymentId": "pay_001",
		"subscriberId":      coachID,
		"outcome":           "succeeded",
		"periodStart":       testNow,
		"periodEnd":         testNow.AddDate(0, 1, 0),
	}

	rec = env.do(t, http.MethodPost, "/v1/webhooks/payment", event)
	require.Equal(t, http.StatusAccepted, rec.Code)

	after, err := env.subs.ActiveBySubscriber(context.Background(), coachID)
	require.NoError(t, err)
	require.Equal(t, "pay_001", after.LastPaymentID)
	firstUpdated := after.UpdatedAt

	// Redelivery acknowledges without moving the ledger.
	rec = env.do(t, http.MethodPost, "/v1/webhooks/payment", event)
	require.Equal(t, http.StatusAccepted, rec.Code)

	again, err := env.subs.ActiveBySubscriber(context.Background(), coachID)
	require.NoError(t, err)
	assert.Equal(t, firstUpdated, again.UpdatedAt)

	t.Run("rejects unknown outcome", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/webhooks/payment", map[string]any{
			"externalPaymentId": "pay_002",
			"subscriberId":      coachID,
			"outcome":           "maybe",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFailedPaymentDowngradesAccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	coachID := uuid.New()

	rec := env.do(t, http.MethodPost, "/v1/subscriptions/change-plan", map[string]any{
		"subscriberId": coachID,
		"planId":       "coach_power_monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/webhooks/payment", map[string]any{
		"externalPaymentId": "pay_failed_01",
		"subscriberId":      coachID,
		"outcome":           "failed",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	subs, err := env.subs.ListBySubscriber(context.Background(), coachID)
	require.NoError(t, err)
	require.NotEmpty(t, subs)
	assert.Equal(t, subscription.StatusPastDue, subs[0].Status)
}
