package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"LuminCredit/internal/alerting"
	"LuminCredit/internal/dashboard"
	"LuminCredit/internal/model"
	"LuminCredit/internal/notifier"
	"LuminCredit/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Lister lists the users known to the store.
type Lister interface {
	List() []store.UserSummary
}

// Scheduler manages the cron tasks and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Dashboard *dashboard.Service
	Users     Lister
	Notifier  notifier.Notifier
	Log       *logrus.Logger
	Ctx       context.Context

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, dash *dashboard.Service, users Lister, n notifier.Notifier, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Dashboard: dash,
		Users:     users,
		Notifier:  n,
		Log:       log,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// RegisterAll registers the rescoring sweep and the digest.
func (s *Scheduler) RegisterAll(sweepCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	if _, err := s.Cron.AddFunc(digestCron, func() { s.Digest() }); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// Sweep re-scores every user and pushes their high-severity alerts.
// It returns the number of users scored.
func (s *Scheduler) Sweep() int {
	s.Log.Info("running rescoring sweep")
	boards := s.Dashboard.BuildAll(s.Ctx, "sweep")
	for _, d := range boards {
		high := alerting.BySeverity(d.Alerts, model.SeverityHigh)
		if len(high) == 0 {
			continue
		}
		msg := notifier.Message{
			Subject: fmt.Sprintf("High-severity alerts for %s", d.Username),
			HTML:    notifier.FormatScoreReport(d.Report(), high),
		}
		if d.Email != "" {
			msg.To = []string{d.Email}
		}
		s.trySend(msg)
	}
	s.Log.WithField("users", len(boards)).Info("rescoring sweep finished")
	return len(boards)
}

// Digest sends the score-band summary of all users.
func (s *Scheduler) Digest() {
	s.Log.Info("running digest")
	boards := s.Dashboard.BuildAll(s.Ctx, "digest")
	entries := make([]notifier.DigestEntry, len(boards))
	for i, d := range boards {
		entries[i] = notifier.DigestEntry{
			Username:   d.Username,
			Score:      d.Score,
			HighAlerts: len(alerting.BySeverity(d.Alerts, model.SeverityHigh)),
		}
	}
	s.trySend(notifier.Message{
		Subject: "Credit score digest",
		HTML:    notifier.FormatDigest(entries, s.now()),
	})
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch fields[0] {
	case "/users":
		return notifier.FormatUserList(s.Users.List())
	case "/score":
		if len(fields) < 2 {
			return "Usage: /score &lt;username&gt;"
		}
		d, err := s.Dashboard.Build(ctx, fields[1], "chat")
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return fmt.Sprintf("Unknown user: %s", fields[1])
			}
			s.Log.WithError(err).Error("score command")
			return "Scoring failed, see logs."
		}
		return notifier.FormatScoreReport(d.Report(), d.Alerts)
	case "/sweep":
		n := s.Sweep()
		return fmt.Sprintf("Sweep finished: %d users scored.", n)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(msg notifier.Message) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(s.Ctx, msg); err != nil {
		s.Log.WithError(err).WithField("subject", msg.Subject).Error("send notification")
	}
}
