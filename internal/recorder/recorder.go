package recorder

import (
	"time"

	"LuminCredit/internal/model"
)

// RunSnapshot holds everything produced by one scoring run.
type RunSnapshot struct {
	ID         string // generated when empty
	Username   string
	Trigger    string // "api", "sweep" or "cli"
	Report     *model.ScoreReport
	Alerts     []model.Alert
	RecordedAt time.Time
}

// PaymentEvent records a payment decision and the balances around it.
type PaymentEvent struct {
	Username      string
	Amount        float64
	Approved      bool
	Reason        string
	SavingsBefore float64
	SavingsAfter  float64
	DebtBefore    float64
	DebtAfter     float64
}

// RunSummary is one row of a user's scoring history.
type RunSummary struct {
	ID               string
	Timestamp        time.Time
	Trigger          string
	Score            int
	ProvisionalScore int
	WeightsSource    model.WeightsSource
	AlertCount       int
}

// Recorder persists scoring history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	RecordPayment(evt *PaymentEvent) error
	RecentRuns(username string, limit int) ([]RunSummary, error)
	Close() error
}
