package dashboard

import (
	"context"
	"time"

	"LuminCredit/internal/alerting"
	"LuminCredit/internal/model"
	"LuminCredit/internal/payments"
	"LuminCredit/internal/recorder"
	"LuminCredit/internal/scoring"

	"github.com/sirupsen/logrus"
)

// Users is the read side of the user store.
type Users interface {
	Get(username string) (*model.UserFinancialRecord, error)
	Usernames() []string
}

// Dashboard is a user's record together with everything derived from it.
type Dashboard struct {
	*model.UserFinancialRecord

	Score            int                     `json:"score"`
	ProvisionalScore int                     `json:"provisional_score"`
	Weights          model.ImpactWeightSet   `json:"weights"`
	WeightsSource    model.WeightsSource     `json:"weights_source"`
	Alerts           []model.Alert           `json:"alerts"`
	History          []model.ScoreTrendPoint `json:"history"`
	ScoreHistory     model.ScoreHistory      `json:"score_history"`
	PaymentLimits    payments.Limits         `json:"payment_limits"`
	RunID            string                  `json:"run_id,omitempty"`
}

// Report returns the scoring part of the dashboard.
func (d *Dashboard) Report() *model.ScoreReport {
	return &model.ScoreReport{
		Username:         d.Username,
		Score:            d.Score,
		ProvisionalScore: d.ProvisionalScore,
		Weights:          d.Weights,
		WeightsSource:    d.WeightsSource,
		History:          d.History,
		ScoreHistory:     d.ScoreHistory,
	}
}

// Service builds dashboards and records every scoring run.
type Service struct {
	Users    Users
	Engine   *scoring.Engine
	Recorder recorder.Recorder
	Log      *logrus.Logger
}

// NewService creates a dashboard service. A nil recorder records nothing.
func NewService(users Users, engine *scoring.Engine, rec recorder.Recorder, log *logrus.Logger) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{Users: users, Engine: engine, Recorder: rec, Log: log}
}

func (s *Service) logger() *logrus.Logger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Build scores one user. trigger names the caller in the run history.
func (s *Service) Build(ctx context.Context, username, trigger string) (*Dashboard, error) {
	rec, err := s.Users.Get(username)
	if err != nil {
		return nil, err
	}
	rec.Password = ""
	rec.PasswordHash = ""

	start := time.Now()
	report := s.Engine.Evaluate(ctx, rec)
	alerts := alerting.Check(rec)

	d := &Dashboard{
		UserFinancialRecord: rec,
		Score:               report.Score,
		ProvisionalScore:    report.ProvisionalScore,
		Weights:             report.Weights,
		WeightsSource:       report.WeightsSource,
		Alerts:              alerts,
		History:             report.History,
		ScoreHistory:        report.ScoreHistory,
		PaymentLimits:       payments.ComputeLimits(rec),
	}

	snap := &recorder.RunSnapshot{Username: username, Trigger: trigger, Report: report, Alerts: alerts}
	if err := s.Recorder.RecordRun(snap); err != nil {
		s.logger().WithError(err).WithField("username", username).Error("record scoring run")
	} else {
		d.RunID = snap.ID
	}

	s.logger().WithFields(logrus.Fields{
		"username":       username,
		"trigger":        trigger,
		"score":          report.Score,
		"weights_source": report.WeightsSource,
		"alerts":         len(alerts),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	}).Info("scoring run complete")
	return d, nil
}

// BuildAll scores every user in listing order. Users that fail to load are
// logged and skipped.
func (s *Service) BuildAll(ctx context.Context, trigger string) []*Dashboard {
	var out []*Dashboard
	for _, name := range s.Users.Usernames() {
		if ctx.Err() != nil {
			break
		}
		d, err := s.Build(ctx, name, trigger)
		if err != nil {
			s.logger().WithError(err).WithField("username", name).Warn("skipping user")
			continue
		}
		out = append(out, d)
	}
	return out
}
