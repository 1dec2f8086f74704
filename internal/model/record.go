package model

import (
	"encoding/json"
	"math"
	"sort"
)

// OutsideWindow is the month offset assigned to events with no recorded offset.
// Anything at or beyond it is ignored by every 12-month aggregate.
const OutsideWindow = 12

// UserFinancialRecord is the persisted profile a score is computed from.
type UserFinancialRecord struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`

	// Password is only read from seed files; the store replaces it with
	// PasswordHash (bcrypt) on load.
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`

	ScenarioTitle string `json:"scenario_title,omitempty"`

	Income          float64 `json:"income"`
	LastYearTaxPaid int64   `json:"last_year_tax_paid,omitempty"`
	EstimatedIncome int64   `json:"estimated_income,omitempty"`
	Debt            float64 `json:"debt"`
	CreditLimit     float64 `json:"credit_limit,omitempty"`
	Utilization     float64 `json:"utilization"`
	SavingsBalance  float64 `json:"savings_balance"`
	MonthlySpend    float64 `json:"monthly_spend"`
	EMIAmount       float64 `json:"emi_amount,omitempty"`

	// PaymentHistory is nil when the source record omits it.
	PaymentHistory       *float64           `json:"payment_history,omitempty"`
	NumMissedPayments12m int                `json:"num_missed_payments_12m,omitempty"`
	Transactions         []TransactionEvent `json:"transactions"`

	CurrentGoal string    `json:"current_goal,omitempty"`
	GoalAmount  int64     `json:"goal_amount,omitempty"`
	GoalPlan    *GoalPlan `json:"goal_plan,omitempty"`
}

// PaymentHistoryMetric returns the 0-100 payment quality metric, giving the
// benefit of the doubt (100) when it is missing.
func (r *UserFinancialRecord) PaymentHistoryMetric() float64 {
	if r.PaymentHistory == nil {
		return 100
	}
	return *r.PaymentHistory
}

// Clone returns a copy whose transaction slice can be annotated without
// touching the original.
func (r *UserFinancialRecord) Clone() *UserFinancialRecord {
	c := *r
	if r.Transactions != nil {
		c.Transactions = make([]TransactionEvent, len(r.Transactions))
		copy(c.Transactions, r.Transactions)
	}
	if r.PaymentHistory != nil {
		ph := *r.PaymentHistory
		c.PaymentHistory = &ph
	}
	if r.GoalPlan != nil {
		gp := *r.GoalPlan
		gp.PlanSteps = append([]string(nil), r.GoalPlan.PlanSteps...)
		c.GoalPlan = &gp
	}
	return &c
}

// EventsAt returns the events recorded at the given month offset, ordered by date.
// The order among events sharing a date is the input order.
func (r *UserFinancialRecord) EventsAt(offset int) []TransactionEvent {
	var out []TransactionEvent
	for _, tx := range r.Transactions {
		if tx.MonthOffset == offset {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TransactionEvent is a single entry of the user's transaction log.
type TransactionEvent struct {
	Date        string    `json:"date"`
	MonthOffset int       `json:"month_offset"`
	Type        EventType `json:"type"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount"`
	Merchant    string    `json:"merchant,omitempty"`
	Category    string    `json:"category,omitempty"`
	Alert       bool      `json:"alert,omitempty"`
}

// UnmarshalJSON places events without a month_offset outside the scoring window
// and truncates amounts to whole units in [0, MaxInt64].
func (t *TransactionEvent) UnmarshalJSON(data []byte) error {
	type plain TransactionEvent
	aux := struct {
		*plain
		MonthOffset *int     `json:"month_offset"`
		Amount      *float64 `json:"amount"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.MonthOffset == nil {
		t.MonthOffset = OutsideWindow
	} else {
		t.MonthOffset = *aux.MonthOffset
	}
	t.Amount = 0
	if aux.Amount != nil {
		switch f := *aux.Amount; {
		case f >= math.MaxInt64:
			t.Amount = math.MaxInt64
		case f > 0:
			t.Amount = int64(f)
		}
	}
	return nil
}

// ParsedStatus classifies the free-text status of the event.
func (t TransactionEvent) ParsedStatus() EventStatus {
	return ParseStatus(t.Status)
}

// GoalPlan is the improvement plan attached to a user's financial goal.
type GoalPlan struct {
	PlanSteps   []string `json:"plan_steps"`
	TargetScore int      `json:"target_score"`
	Timeline    string   `json:"timeline"`
	Feasibility string   `json:"feasibility"`
}
