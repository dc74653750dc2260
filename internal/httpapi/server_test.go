package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/features/actions"
	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/features/lightscore"
	"funplay.vn/light-engine/internal/pplp"
)

const adminToken = "letmein"

type fakeScores struct {
	lastFrom, lastTo time.Time
	panicOn          string
}

func (f *fakeScores) Profile(_ context.Context, userID string) (*lightscore.Profile, error) {
	if userID == f.panicOn {
		panic("boom")
	}
	if userID != "ly" {
		return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
	}
	return &lightscore.Profile{UserID: "ly", TotalLight: 60, DaysScored: 7,
		Progress: pplp.ProgressForScore(60, pplp.RulesV1())}, nil
}

func (f *fakeScores) History(_ context.Context, _ string, from, to time.Time) ([]pplp.DailyLightScoreResult, error) {
	f.lastFrom, f.lastTo = from, to
	return nil, nil
}

func (f *fakeScores) Recalculate(_ context.Context, userID string, from, to time.Time) (*lightscore.RecalcReport, error) {
	return &lightscore.RecalcReport{UserID: userID, From: from, To: to, Days: 3, Batches: 1}, nil
}

type fakeEpochs struct {
	closed map[string]bool
}

func (f *fakeEpochs) Current(now time.Time) pplp.Epoch {
	return pplp.MonthlyEpoch(now, time.UTC)
}

func (f *fakeEpochs) Get(_ context.Context, id string) (*pplp.Epoch, error) {
	if id != "2025-02" {
		return nil, fmt.Errorf("%w: %s", common.ErrEpochNotFound, id)
	}
	return &pplp.Epoch{ID: id, Status: pplp.EpochOpen}, nil
}

func (f *fakeEpochs) Allocations(_ context.Context, id string) ([]pplp.MintAllocation, error) {
	if id != "2025-02" {
		return nil, fmt.Errorf("%w: %s", common.ErrEpochNotFound, id)
	}
	return []pplp.MintAllocation{
		{UserID: "a", FinalUnits: 1_500_000},
		{UserID: "b", FinalUnits: 500_000},
	}, nil
}

func (f *fakeEpochs) Close(_ context.Context, id string, _ time.Time) (*epochs.CloseResult, error) {
	if f.closed[id] {
		return nil, fmt.Errorf("%w: %s", common.ErrEpochClosed, id)
	}
	f.closed[id] = true
	return &epochs.CloseResult{Epoch: pplp.Epoch{ID: id, Status: pplp.EpochClosed}}, nil
}

type fakeActions struct {
	seen map[string]bool
}

func (f *fakeActions) Record(_ context.Context, ev pplp.ActionEvent) error {
	if err := actions.ValidateEvent(ev); err != nil {
		return err
	}
	if f.seen[ev.EventID] {
		return common.ErrDuplicateEvent
	}
	f.seen[ev.EventID] = true
	return nil
}

func (f *fakeActions) Signals(_ context.Context, userID string) (*actions.Signals, error) {
	return actions.DefaultSignals(userID), nil
}

func (f *fakeActions) UpdateSignals(_ context.Context, sig *actions.Signals) error {
	return actions.ValidateSignals(sig)
}

type tokenAuth struct{}

func (tokenAuth) Authorize(_ context.Context, _, token string) error {
	if token != adminToken {
		return common.ErrUnauthorized
	}
	return nil
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type fixture struct {
	server *Server
	scores *fakeScores
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	registry, err := pplp.NewRegistry(pplp.RulesV1())
	require.NoError(t, err)

	scores := &fakeScores{panicOn: "panic"}
	cfg := Config{
		Scores:   scores,
		Epochs:   &fakeEpochs{closed: map[string]bool{}},
		Actions:  &fakeActions{seen: map[string]bool{}},
		Admin:    tokenAuth{},
		DB:       fakeDB{},
		Registry: registry,
		Active:   pplp.RulesV1(),
		Loc:      time.UTC,
		Metrics:  http.NotFoundHandler(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	s := New(cfg)
	s.Now = func() time.Time { return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC) }
	return &fixture{server: s, scores: scores}
}

func (f *fixture) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", "").Code)

	down := newFixture(t, func(c *Config) { c.DB = fakeDB{err: errors.New("refused")} })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/healthz", "", "").Code)
}

func TestRules(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[rulesResponse](t, rec)
	assert.Equal(t, "V1.0", body.ActiveVersion)
	assert.Len(t, body.Fingerprint, 64)
	assert.Equal(t, []string{"V1.0"}, body.Versions)
	assert.Equal(t, 0.03, body.Rules.Mint.AntiWhaleCap)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/rules/V9.9", "", "").Code)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/users/ly/light", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[lightscore.Profile](t, rec)
	assert.Equal(t, pplp.LevelSprout, profile.Progress.Level)
	assert.Equal(t, pplp.LevelBuilder, profile.Progress.NextLevel)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/users/ghost/light", "", "").Code)
}

func TestHistoryRange(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/users/ly/days", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, time.Date(2025, time.February, 13, 0, 0, 0, 0, time.UTC), f.scores.lastFrom)
	assert.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), f.scores.lastTo)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/users/ly/days?from=2025-03-10&to=2025-03-01", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/users/ly/days?from=yesterday", "", "").Code)
}

func TestEpochs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/epochs/current", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03", decode[pplp.Epoch](t, rec).ID)

	rec = f.do(http.MethodGet, "/v1/epochs/2025-02/allocations", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	allocs := decode[allocationsResponse](t, rec)
	assert.Equal(t, int64(2_000_000), allocs.FinalUnits)
	assert.Equal(t, 2.0, allocs.FinalAmount)
	assert.Len(t, allocs.Allocations, 2)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/epochs/1999-01", "", "").Code)
}

func TestSimulateLy(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/simulate/ly", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[pplp.SimulationResult](t, rec)
	assert.Greater(t, res.LightScore, 7.5)
	assert.Less(t, res.LightScore, 10.0)
	assert.True(t, res.AntiWhalePassed)
	assert.Nil(t, res.Settlement.Allocations)

	rec = f.do(http.MethodPost, "/v1/simulate/whale?full=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[pplp.SimulationResult](t, rec).Settlement.Allocations, 2)
}

func TestAdminRequiresToken(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/epochs/2025-02/close", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/epochs/2025-02/close", "", "guess").Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/epochs/2025-02/close", "", adminToken).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/v1/epochs/2025-02/close", "", adminToken).Code)
}

func TestRecalculate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/users/ly/recalculate?from=2025-03-01&to=2025-03-03", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[lightscore.RecalcReport](t, rec)
	assert.Equal(t, 3, report.Days)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), report.From.UTC())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/users/ly/recalculate?from=2025-03-01", "", adminToken).Code)
}

func TestPostEvent(t *testing.T) {
	f := newFixture(t)
	body := `{"event_id":"e1","user_id":"ly","action_type":"post","occurred_at":"2025-03-14T09:00:00Z"}`

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/events", body, adminToken).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/v1/events", body, adminToken).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/events", `{"event_id":`, adminToken).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/events", `{"event_id":"e2","colour":"red"}`, adminToken).Code)
}

func TestSignals(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/v1/users/ly/signals", `{"reputation_score":2,"suspicious_score":0.1,"violation_level":1}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	sig := decode[actions.Signals](t, rec)
	assert.Equal(t, "ly", sig.UserID)
	assert.Equal(t, 1, sig.ViolationLevel)

	assert.Equal(t, http.StatusBadRequest,
		f.do(http.MethodPut, "/v1/users/ly/signals", `{"violation_level":-2}`, adminToken).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/users/ly/signals", "", adminToken).Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Close()
	f := newFixture(t, func(c *Config) { c.RateLimiter = limiter })

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/rules", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/rules", "", "").Code)
	rec := f.do(http.MethodGet, "/v1/rules", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// /healthz вне лимита.
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", "").Code)
}

func TestRecovererReturns500(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/users/panic/light", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"внутренняя ошибка"}`, rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", bearerToken(req))
	req.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", bearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", bearerToken(req))
}
