package payments

import (
	"errors"
	"fmt"

	"LuminCredit/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingGoal     = errors.New("goal is required")
	ErrPaymentRejected = errors.New("payment rejected")
)

const (
	ReasonOverpayment  = "This payment exceeds your outstanding debt. Paying more than you owe would tie up savings your plan depends on."
	ReasonApproved     = "Approved: your savings cover this payment."
	ReasonInsufficient = "Insufficient funds: your savings do not cover this payment."
)

// Decision is the outcome of a payment authorization.
type Decision struct {
	Approved         bool            `json:"approved"`
	Reason           string          `json:"reason"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Authorize decides whether the user's savings may fund a debt payment.
func Authorize(rec *model.UserFinancialRecord, amount decimal.Decimal) Decision {
	savings := decimal.NewFromFloat(rec.SavingsBalance)
	debt := decimal.NewFromFloat(rec.Debt)

	switch {
	case amount.GreaterThan(debt):
		return Decision{Approved: false, Reason: ReasonOverpayment, RemainingBalance: savings}
	case savings.GreaterThanOrEqual(amount):
		return Decision{Approved: true, Reason: ReasonApproved, RemainingBalance: savings.Sub(amount)}
	default:
		return Decision{Approved: false, Reason: ReasonInsufficient, RemainingBalance: savings}
	}
}

// Apply moves an approved payment out of savings and off the debt.
func Apply(rec *model.UserFinancialRecord, d Decision, amount decimal.Decimal) {
	rec.SavingsBalance = d.RemainingBalance.InexactFloat64()
	debt := decimal.NewFromFloat(rec.Debt).Sub(amount)
	if debt.IsNegative() {
		debt = decimal.Zero
	}
	rec.Debt = debt.InexactFloat64()
}

// Receipt describes a processed payment. SavingsBefore and DebtBefore are
// read under the same store update that applied the payment.
type Receipt struct {
	Message       string   `json:"message"`
	NewBalance    float64  `json:"new_balance"`
	NewDebt       float64  `json:"new_debt"`
	Decision      Decision `json:"-"`
	SavingsBefore float64  `json:"-"`
	DebtBefore    float64  `json:"-"`
}

// UserStore is the subset of the user store payments need.
type UserStore interface {
	Update(username string, fn func(*model.UserFinancialRecord) error) (*model.UserFinancialRecord, error)
}

// Service applies payments and goals to stored users.
type Service struct {
	Store  UserStore
	Policy model.Policy
	Log    *logrus.Logger
}

// NewService creates a Service with the default policy.
func NewService(store UserStore, log *logrus.Logger) *Service {
	return &Service{Store: store, Policy: model.DefaultPolicy(), Log: log}
}

func (s *Service) logger() *logrus.Logger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Pay authorizes and applies a payment. A rejected payment returns the
// decision together with an error wrapping ErrPaymentRejected.
func (s *Service) Pay(username string, amount decimal.Decimal) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	var (
		decision                  Decision
		savingsBefore, debtBefore float64
	)
	updated, err := s.Store.Update(username, func(u *model.UserFinancialRecord) error {
		savingsBefore, debtBefore = u.SavingsBalance, u.Debt
		decision = Authorize(u, amount)
		if !decision.Approved {
			return fmt.Errorf("%w: %s", ErrPaymentRejected, decision.Reason)
		}
		Apply(u, decision, amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentRejected) {
			s.logger().WithFields(logrus.Fields{"username": username, "amount": amount.String()}).Info("payment rejected")
			return &Receipt{
				NewBalance:    savingsBefore,
				NewDebt:       debtBefore,
				Decision:      decision,
				SavingsBefore: savingsBefore,
				DebtBefore:    debtBefore,
			}, err
		}
		return nil, err
	}

	s.logger().WithFields(logrus.Fields{"username": username, "amount": amount.String()}).Info("payment processed")
	return &Receipt{
		Message:       fmt.Sprintf("Payment of $%s processed successfully. %s", amount.String(), decision.Reason),
		NewBalance:    updated.SavingsBalance,
		NewDebt:       updated.Debt,
		Decision:      decision,
		SavingsBefore: savingsBefore,
		DebtBefore:    debtBefore,
	}, nil
}

// SetGoal stores the goal and amount with the default improvement plan.
func (s *Service) SetGoal(username, goal string, amount int64) (*model.GoalPlan, error) {
	if goal == "" {
		return nil, ErrMissingGoal
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: goal amount %d", ErrInvalidAmount, amount)
	}

	updated, err := s.Store.Update(username, func(u *model.UserFinancialRecord) error {
		plan := s.Policy.GoalPlan
		plan.PlanSteps = append([]string(nil), plan.PlanSteps...)
		u.CurrentGoal = goal
		u.GoalAmount = amount
		u.GoalPlan = &plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{"username": username, "goal": goal}).Info("goal set")
	return updated.GoalPlan, nil
}
