package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"LuminCredit/internal/calculator"
	"LuminCredit/internal/dashboard"
	"LuminCredit/internal/payments"
	"LuminCredit/internal/recorder"
	"LuminCredit/internal/scoring"
	"LuminCredit/internal/store"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `[
  {"username": "user1", "scenario_title": "Clean", "password": "pw1", "income": 900000, "debt": 5000, "utilization": 0.2,
   "savings_balance": 8000, "monthly_spend": 2000, "transactions": []},
  {"username": "user2", "scenario_title": "Late payer", "password": "pw2", "income": 300000, "debt": 4000, "utilization": 0.9,
   "payment_history": 60, "savings_balance": 1000, "monthly_spend": 800,
   "transactions": [{"date": "2025-11-04", "month_offset": 1, "type": "CC_Min_Payment", "status": "Missed", "amount": 700}]}
]`

type fixture struct {
	router http.Handler
	rec    *recorder.SQLiteRecorder
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	log, _ := test.NewNullLogger()
	st, err := store.New(path, log)
	require.NoError(t, err)

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "history.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	engine := scoring.NewEngine(calculator.NewScoreCalculator(nil), nil, log)
	engine.EvaluationDate = time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)
	dash := dashboard.NewService(st, engine, rec, log)

	h := NewHandler(st, dash, payments.NewService(st, log), rec, NewTokenIssuer(secret, time.Hour), log)
	return &fixture{router: h.Router(), rec: rec}
}

func (f *fixture) do(t *testing.T, method, target string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestLogin(t *testing.T) {
	f := newFixture(t, "secret")

	w, out := f.do(t, http.MethodPost, "/login", map[string]string{"username": "user1", "password": "pw1"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "user1", out["user_id"])
	assert.NotEmpty(t, out["token"])

	w, out = f.do(t, http.MethodPost, "/login", map[string]string{"username": "user1", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", out["message"])
}

func TestUsers(t *testing.T) {
	f := newFixture(t, "")

	w, out := f.do(t, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := out["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, map[string]any{"username": "user1", "type": "Clean"}, data[0])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, "")

	w, out := f.do(t, http.MethodGet, "/dashboard?user=user2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := out["data"].([]any)
	require.Len(t, data, 1)
	board := data[0].(map[string]any)
	assert.Equal(t, "user2", board["username"])
	assert.NotContains(t, board, "password_hash")
	assert.NotEmpty(t, board["alerts"])
	assert.NotEmpty(t, out["meta"].(map[string]any)["run_id"])

	runs, err := f.rec.RecentRuns("user2", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "api", runs[0].Trigger)

	w, _ = f.do(t, http.MethodGet, "/dashboard", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = f.do(t, http.MethodGet, "/dashboard?user=ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", out["status"])
}

func TestPay(t *testing.T) {
	f := newFixture(t, "")

	w, out := f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1", "amount": 3000}, "")
	require.Equal(t, http.StatusOK, w.Code, out)
	assert.Equal(t, 5000.0, out["new_balance"])
	assert.Equal(t, 2000.0, out["new_debt"])

	w, out = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1", "amount": 2500}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment Rejected: "+payments.ReasonOverpayment, out["message"])

	w, _ = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1", "amount": -5}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "ghost", "amount": 10}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type paymentLog struct {
	recorder.NoopRecorder
	events []recorder.PaymentEvent
}

func (p *paymentLog) RecordPayment(evt *recorder.PaymentEvent) error {
	p.events = append(p.events, *evt)
	return nil
}

func TestPay_RecordsBalancesFromReceipt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))
	log, _ := test.NewNullLogger()
	st, err := store.New(path, log)
	require.NoError(t, err)

	events := &paymentLog{}
	engine := scoring.NewEngine(calculator.NewScoreCalculator(nil), nil, log)
	dash := dashboard.NewService(st, engine, events, log)
	f := &fixture{router: NewHandler(st, dash, payments.NewService(st, log), events, NewTokenIssuer("", time.Hour), log).Router()}

	w, out := f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1", "amount": 3000}, "")
	require.Equal(t, http.StatusOK, w.Code, out)
	w, _ = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "user1", "amount": 2500}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(t, http.MethodPost, "/pay", map[string]any{"username": "ghost", "amount": 10}, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Len(t, events.events, 2, "unknown users record nothing")
	assert.Equal(t, recorder.PaymentEvent{
		Username: "user1", Amount: 3000, Approved: true, Reason: payments.ReasonApproved,
		SavingsBefore: 8000, SavingsAfter: 5000, DebtBefore: 5000, DebtAfter: 2000,
	}, events.events[0])
	assert.Equal(t, recorder.PaymentEvent{
		Username: "user1", Amount: 2500, Approved: false, Reason: payments.ReasonOverpayment,
		SavingsBefore: 5000, SavingsAfter: 5000, DebtBefore: 2000, DebtAfter: 2000,
	}, events.events[1])
}

func TestSetGoalAndLimits(t *testing.T) {
	f := newFixture(t, "")

	w, out := f.do(t, http.MethodPost, "/set_goal", map[string]any{"username": "user1", "goal": "Home Loan", "goal_amount": 2500000}, "")
	require.Equal(t, http.StatusOK, w.Code, out)
	assert.NotEmpty(t, out["data"])

	w, out = f.do(t, http.MethodGet, "/limits?user=user1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payments.StatusActive, out["data"].(map[string]any)["status"])

	w, _ = f.do(t, http.MethodPost, "/set_goal", map[string]any{"username": "user1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret")

	w, _ := f.do(t, http.MethodGet, "/dashboard?user=user1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodGet, "/dashboard?user=user1", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, login := f.do(t, http.MethodPost, "/login", map[string]string{"username": "user1", "password": "pw1"}, "")
	token := login["token"].(string)

	w, _ = f.do(t, http.MethodGet, "/dashboard?user=user1", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/dashboard?user=user2", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out := f.do(t, http.MethodGet, "/history?user=user1&limit=10", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["data"].([]any), 1)
}

func TestTokenIssuer(t *testing.T) {
	assert.Nil(t, NewTokenIssuer("", time.Hour))

	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Issue("user1")
	require.NoError(t, err)

	sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user1", sub)

	_, err = NewTokenIssuer("other", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
