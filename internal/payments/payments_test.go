package payments

import (
	"errors"
	"testing"

	"LuminCredit/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	users map[string]*model.UserFinancialRecord
	saves int
}

func (m *memStore) Update(username string, fn func(*model.UserFinancialRecord) error) (*model.UserFinancialRecord, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.New("user not found")
	}
	next := u.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.users[username] = next
	m.saves++
	return next.Clone(), nil
}

func newService(users ...*model.UserFinancialRecord) (*Service, *memStore) {
	ms := &memStore{users: map[string]*model.UserFinancialRecord{}}
	for _, u := range users {
		ms.users[u.Username] = u
	}
	log, _ := test.NewNullLogger()
	return NewService(ms, log), ms
}

func TestAuthorize(t *testing.T) {
	rec := &model.UserFinancialRecord{SavingsBalance: 10000, Debt: 8000}
	tests := []struct {
		name      string
		amount    int64
		approved  bool
		reason    string
		remaining int64
	}{
		{"within savings", 3000, true, ReasonApproved, 7000},
		{"pays full debt", 8000, true, ReasonApproved, 2000},
		{"overpayment", 8001, false, ReasonOverpayment, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(rec, decimal.NewFromInt(tt.amount))
			assert.Equal(t, tt.approved, d.Approved)
			assert.Equal(t, tt.reason, d.Reason)
			assert.True(t, decimal.NewFromInt(tt.remaining).Equal(d.RemainingBalance))
		})
	}

	poor := &model.UserFinancialRecord{SavingsBalance: 500, Debt: 8000}
	d := Authorize(poor, decimal.NewFromInt(600))
	assert.False(t, d.Approved)
	assert.Equal(t, ReasonInsufficient, d.Reason)
}

func TestService_Pay(t *testing.T) {
	svc, ms := newService(&model.UserFinancialRecord{Username: "user3", SavingsBalance: 10000.50, Debt: 2500})

	receipt, err := svc.Pay("user3", decimal.RequireFromString("2500"))
	require.NoError(t, err)
	assert.Equal(t, 7500.50, receipt.NewBalance)
	assert.Zero(t, receipt.NewDebt)
	assert.Contains(t, receipt.Message, "Payment of $2500 processed successfully.")
	assert.Equal(t, 1, ms.saves)

	receipt, err = svc.Pay("user3", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrPaymentRejected)
	require.NotNil(t, receipt)
	assert.Equal(t, ReasonOverpayment, receipt.Decision.Reason)
	assert.Equal(t, 1, ms.saves, "rejected payments are not persisted")
}

func TestService_PayReceiptCarriesBalancesBefore(t *testing.T) {
	svc, ms := newService(&model.UserFinancialRecord{Username: "user3", SavingsBalance: 10000, Debt: 8000})

	receipt, err := svc.Pay("user3", decimal.NewFromInt(3000))
	require.NoError(t, err)
	assert.Equal(t, 10000.0, receipt.SavingsBefore)
	assert.Equal(t, 8000.0, receipt.DebtBefore)

	// Another writer changes the record between two payments.
	ms.users["user3"].SavingsBalance = 6000

	receipt, err = svc.Pay("user3", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, 6000.0, receipt.SavingsBefore)
	assert.Equal(t, 5000.0, receipt.DebtBefore)
	assert.Equal(t, 5000.0, receipt.NewBalance)
	assert.Equal(t, 4000.0, receipt.NewDebt)

	receipt, err = svc.Pay("user3", decimal.NewFromInt(4001))
	assert.ErrorIs(t, err, ErrPaymentRejected)
	require.NotNil(t, receipt)
	assert.Equal(t, 5000.0, receipt.SavingsBefore)
	assert.Equal(t, receipt.SavingsBefore, receipt.NewBalance, "rejected payments leave savings unchanged")
	assert.Equal(t, receipt.DebtBefore, receipt.NewDebt)
}

func TestService_NilLogger(t *testing.T) {
	ms := &memStore{users: map[string]*model.UserFinancialRecord{
		"user3": {Username: "user3", SavingsBalance: 100, Debt: 50},
	}}
	svc := &Service{Store: ms, Policy: model.DefaultPolicy()}

	assert.NotPanics(t, func() {
		_, err := svc.Pay("user3", decimal.NewFromInt(10))
		assert.NoError(t, err)
		_, err = svc.Pay("user3", decimal.NewFromInt(1000))
		assert.ErrorIs(t, err, ErrPaymentRejected)
		_, err = NewService(ms, nil).SetGoal("user3", "Buy a car", 1000)
		assert.NoError(t, err)
	})
}

func TestService_PayInvalidAmount(t *testing.T) {
	svc, _ := newService(&model.UserFinancialRecord{Username: "user3"})
	for _, amt := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := svc.Pay("user3", amt)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestService_SetGoal(t *testing.T) {
	svc, ms := newService(&model.UserFinancialRecord{Username: "user7"})

	plan, err := svc.SetGoal("user7", "Buy a car", 240000)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maintain on-time payments", "Reduce debt"}, plan.PlanSteps)
	assert.Equal(t, 750, plan.TargetScore)
	assert.Equal(t, "Unknown", plan.Timeline)

	u := ms.users["user7"]
	assert.Equal(t, "Buy a car", u.CurrentGoal)
	assert.Equal(t, int64(240000), u.GoalAmount)

	u.GoalPlan.PlanSteps[0] = "changed"
	assert.Equal(t, "Maintain on-time payments", svc.Policy.GoalPlan.PlanSteps[0], "policy plan is not shared")

	_, err = svc.SetGoal("user7", "", 10)
	assert.ErrorIs(t, err, ErrMissingGoal)
	_, err = svc.SetGoal("user7", "x", -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
