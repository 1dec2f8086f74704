package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"LuminCredit/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scoring history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logrus.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS score_runs (
			id                     TEXT PRIMARY KEY,
			timestamp              INTEGER NOT NULL,
			username               TEXT NOT NULL,
			origin                 TEXT,
			score                  INTEGER,
			provisional_score      INTEGER,
			weights_source         TEXT,
			emi_repayment          INTEGER,
			cc_full_payment        INTEGER,
			late_payment           INTEGER,
			inquiry_penalty        INTEGER,
			new_account_penalty    INTEGER,
			large_purchase_penalty INTEGER,
			alert_count            INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_ts ON score_runs(username, timestamp)`,

		`CREATE TABLE IF NOT EXISTS trend_points (
			run_id   TEXT NOT NULL,
			position INTEGER NOT NULL,
			month    TEXT,
			score    INTEGER,
			PRIMARY KEY (run_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS score_movements (
			run_id   TEXT NOT NULL,
			position INTEGER NOT NULL,
			date     TEXT,
			change   TEXT,
			reason   TEXT,
			PRIMARY KEY (run_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL,
			type     TEXT,
			severity TEXT,
			message  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id)`,

		`CREATE TABLE IF NOT EXISTS payment_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			username       TEXT NOT NULL,
			amount         REAL,
			approved       INTEGER,
			reason         TEXT,
			savings_before REAL,
			savings_after  REAL,
			debt_before    REAL,
			debt_after     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user_ts ON payment_events(username, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	if snap == nil || snap.Report == nil {
		return fmt.Errorf("record run: empty snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now()
	}
	rep := snap.Report
	w := rep.Weights

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO score_runs
		(id, timestamp, username, origin, score, provisional_score, weights_source,
		 emi_repayment, cc_full_payment, late_payment,
		 inquiry_penalty, new_account_penalty, large_purchase_penalty, alert_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.ID, snap.RecordedAt.Unix(), snap.Username, snap.Trigger,
		rep.Score, rep.ProvisionalScore, string(rep.WeightsSource),
		w.EMIRepayment, w.CCFullPayment, w.LatePayment,
		w.InquiryPenalty, w.NewAccountPenalty, w.LargePurchasePenalty,
		len(snap.Alerts),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, p := range rep.History {
		if _, err := tx.Exec(`INSERT INTO trend_points (run_id, position, month, score) VALUES (?,?,?,?)`,
			snap.ID, i, p.Month, p.Score); err != nil {
			return fmt.Errorf("insert trend point: %w", err)
		}
	}
	for i, m := range rep.ScoreHistory.ScoreMovements {
		if _, err := tx.Exec(`INSERT INTO score_movements (run_id, position, date, change, reason) VALUES (?,?,?,?,?)`,
			snap.ID, i, m.Date, m.Change, m.Reason); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
	}
	for _, a := range snap.Alerts {
		if _, err := tx.Exec(`INSERT INTO alerts (run_id, type, severity, message) VALUES (?,?,?,?)`,
			snap.ID, string(a.Type), string(a.Severity), a.Message); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordPayment(evt *PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO payment_events
		(timestamp, username, amount, approved, reason, savings_before, savings_after, debt_before, debt_after)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Username, evt.Amount, evt.Approved, evt.Reason,
		evt.SavingsBefore, evt.SavingsAfter, evt.DebtBefore, evt.DebtAfter,
	)
	return err
}

// RecentRuns returns the newest runs for a user, newest first.
func (r *SQLiteRecorder) RecentRuns(username string, limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, timestamp, origin, score, provisional_score, weights_source, alert_count
		FROM score_runs WHERE username = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s      RunSummary
			ts     int64
			source string
		)
		if err := rows.Scan(&s.ID, &ts, &s.Trigger, &s.Score, &s.ProvisionalScore, &source, &s.AlertCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		s.WeightsSource = model.WeightsSource(source)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
