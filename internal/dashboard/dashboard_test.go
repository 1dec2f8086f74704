package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"LuminCredit/internal/calculator"
	"LuminCredit/internal/model"
	"LuminCredit/internal/payments"
	"LuminCredit/internal/recorder"
	"LuminCredit/internal/scoring"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("user not found")

type fakeUsers map[string]*model.UserFinancialRecord

func (f fakeUsers) Get(username string) (*model.UserFinancialRecord, error) {
	u, ok := f[username]
	if !ok {
		return nil, errMissing
	}
	return u.Clone(), nil
}

func (f fakeUsers) Usernames() []string {
	return []string{"user1", "ghost", "user2"}
}

type fakeRecorder struct {
	recorder.NoopRecorder
	runs []*recorder.RunSnapshot
	err  error
}

func (f *fakeRecorder) RecordRun(snap *recorder.RunSnapshot) error {
	if f.err != nil {
		return f.err
	}
	snap.ID = "run-1"
	f.runs = append(f.runs, snap)
	return nil
}

func newTestService(users fakeUsers, rec recorder.Recorder) (*Service, *test.Hook) {
	log, hook := test.NewNullLogger()
	engine := scoring.NewEngine(calculator.NewScoreCalculator(nil), nil, log)
	engine.EvaluationDate = time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)
	return NewService(users, engine, rec, log), hook
}

func sampleUsers() fakeUsers {
	return fakeUsers{
		"user1": {
			Username:       "user1",
			PasswordHash:   "$2a$10$hash",
			Utilization:    0.5,
			SavingsBalance: 10000,
			MonthlySpend:   500,
			Transactions: []model.TransactionEvent{
				{Date: "2025-10-02", MonthOffset: 2, Type: model.EventEMIRepayment, Status: "Missed", Amount: 900},
			},
		},
		"user2": {Username: "user2"},
	}
}

func TestBuild(t *testing.T) {
	users := sampleUsers()
	rec := &fakeRecorder{}
	svc, _ := newTestService(users, rec)

	d, err := svc.Build(context.Background(), "user1", "api")
	require.NoError(t, err)

	// 300 + 350 + 100
	assert.Equal(t, 750, d.Score)
	assert.Equal(t, model.WeightsFromDefault, d.WeightsSource)
	require.Len(t, d.History, 12)
	assert.Equal(t, 750, d.History[11].Score)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, model.AlertViolation, d.Alerts[0].Type)
	assert.True(t, d.Transactions[0].Alert)
	assert.False(t, users["user1"].Transactions[0].Alert, "stored record is not annotated")
	assert.Equal(t, payments.StatusNoGoal, d.PaymentLimits.Status)
	assert.Equal(t, "run-1", d.RunID)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "api", rec.runs[0].Trigger)
	assert.Equal(t, d.Score, rec.runs[0].Report.Score)
}

func TestBuild_JSONShape(t *testing.T) {
	svc, _ := newTestService(sampleUsers(), nil)
	d, err := svc.Build(context.Background(), "user1", "api")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.Equal(t, "user1", m["username"])
	assert.NotContains(t, m, "password_hash")
	assert.Contains(t, m, "score")
	assert.Contains(t, m, "alerts")
	assert.Contains(t, m, "history")
	assert.Contains(t, m, "payment_limits")
	assert.Contains(t, m["score_history"], "score_movements")
	assert.Empty(t, d.RunID, "noop recorder assigns no id")
}

func TestBuild_RecorderFailureIsLogged(t *testing.T) {
	svc, hook := newTestService(sampleUsers(), &fakeRecorder{err: errors.New("disk full")})
	d, err := svc.Build(context.Background(), "user2", "sweep")
	require.NoError(t, err)
	assert.Empty(t, d.RunID)

	var sawError bool
	for _, e := range hook.AllEntries() {
		if e.Message == "record scoring run" {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestBuild_UnknownUser(t *testing.T) {
	svc, _ := newTestService(sampleUsers(), nil)
	_, err := svc.Build(context.Background(), "nobody", "api")
	assert.ErrorIs(t, err, errMissing)
}

func TestBuild_NilLogger(t *testing.T) {
	log, _ := test.NewNullLogger()
	engine := scoring.NewEngine(calculator.NewScoreCalculator(nil), nil, log)
	svc := &Service{Users: sampleUsers(), Engine: engine, Recorder: &fakeRecorder{err: errors.New("disk full")}}

	assert.NotPanics(t, func() {
		all := svc.BuildAll(context.Background(), "sweep")
		assert.Len(t, all, 2)
	})
}

func TestBuildAll_SkipsFailures(t *testing.T) {
	rec := &fakeRecorder{}
	svc, _ := newTestService(sampleUsers(), rec)

	all := svc.BuildAll(context.Background(), "sweep")
	require.Len(t, all, 2)
	assert.Equal(t, "user1", all[0].Username)
	assert.Equal(t, "user2", all[1].Username)
	assert.Equal(t, 850, all[1].Score)
	assert.Len(t, rec.runs, 2)
}

func TestDashboardReport(t *testing.T) {
	svc, _ := newTestService(sampleUsers(), nil)
	d, err := svc.Build(context.Background(), "user2", "cli")
	require.NoError(t, err)
	r := d.Report()
	assert.Equal(t, "user2", r.Username)
	assert.Equal(t, d.Score, r.Score)
	assert.Equal(t, d.History, r.History)
}
