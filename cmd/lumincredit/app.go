package main

import (
	"context"
	"fmt"

	"LuminCredit/internal/advisor"
	"LuminCredit/internal/calculator"
	"LuminCredit/internal/config"
	"LuminCredit/internal/dashboard"
	"LuminCredit/internal/model"
	"LuminCredit/internal/notifier"
	"LuminCredit/internal/payments"
	"LuminCredit/internal/recorder"
	"LuminCredit/internal/scoring"
	"LuminCredit/internal/store"

	"github.com/sirupsen/logrus"
)

// app holds the wired services shared by every command.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	store     *store.Store
	recorder  recorder.Recorder
	dashboard *dashboard.Service
	payments  *payments.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log := cfg.NewLogger()

	st, err := store.New(cfg.Data.UsersFile, log)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	policy := model.DefaultPolicy()
	resolver, err := advisor.New(ctx, advisor.Options{
		Provider:    cfg.Advisor.Provider,
		APIKey:      cfg.Advisor.APIKey,
		BaseURL:     cfg.Advisor.BaseURL,
		Model:       cfg.Advisor.Model,
		Temperature: cfg.Advisor.Temperature,
		Timeout:     cfg.Advisor.Timeout,
		MaxRetries:  cfg.Advisor.MaxRetries,
		Proxy:       cfg.Proxy,
	}, policy)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("init advisor: %w", err)
	}
	log.WithField("provider", resolver.Name()).Info("weight resolver ready")

	evalDate, _ := cfg.EvaluationTime()
	engine := scoring.NewEngine(calculator.NewScoreCalculator(calculator.Overrides(cfg.Scoring.Overrides)), resolver, log)
	engine.ResolveTimeout = cfg.Scoring.ResolveTimeout
	engine.EvaluationDate = evalDate

	return &app{
		cfg:       cfg,
		log:       log,
		store:     st,
		recorder:  rec,
		dashboard: dashboard.NewService(st, engine, rec, log),
		payments:  payments.NewService(st, log),
	}, nil
}

// notifiers returns the configured channels, or nil when none are set.
func (a *app) notifiers() (notifier.Notifier, *notifier.TelegramNotifier) {
	var multi notifier.Multi
	var tg *notifier.TelegramNotifier
	if a.cfg.Telegram.BotToken != "" {
		tg = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
		multi = append(multi, tg)
	}
	if a.cfg.Email.SMTPHost != "" {
		multi = append(multi, notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     a.cfg.Email.SMTPHost,
			Port:     a.cfg.Email.SMTPPort,
			Username: a.cfg.Email.Username,
			Password: a.cfg.Email.Password,
			From:     a.cfg.Email.From,
			To:       a.cfg.Email.To,
		}, a.log))
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, tg
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.WithError(err).Warn("close recorder")
	}
}
