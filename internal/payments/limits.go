package payments

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"LuminCredit/internal/model"

	"github.com/shopspring/decimal"
)

const (
	StatusActive = "Active"
	StatusNoGoal = "NA"

	defaultGoalMonths = 12
)

var (
	emergencyShare = decimal.NewFromFloat(0.1)
	halfMonth      = decimal.NewFromFloat(0.5)
	debtSafeShare  = decimal.NewFromFloat(0.8)
	debtMaxShare   = decimal.NewFromFloat(0.95)

	digits = regexp.MustCompile(`\d+`)
)

// Limits are the payment ceilings shown next to the user's goal.
type Limits struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	SafeLimit       *int64 `json:"safe_limit"`
	SafeLimitNoGoal int64  `json:"safe_limit_no_goal"`
	MaxLimit        int64  `json:"max_limit"`
	GoalValue       string `json:"goal_value"`
	ImpactAnalysis  string `json:"impact_analysis"`
}

// ComputeLimits derives safe and maximum single-payment limits. An emergency
// fund of max(10% of savings, one month of spend) is always held back.
func ComputeLimits(rec *model.UserFinancialRecord) Limits {
	savings := decimal.NewFromFloat(rec.SavingsBalance)
	spend := decimal.NewFromFloat(rec.MonthlySpend)
	debt := decimal.NewFromFloat(rec.Debt)

	emergency := decimal.Max(savings.Mul(emergencyShare).Truncate(0), spend.Truncate(0))
	safeNoGoal := nonNegative(savings.Sub(emergency))
	maxBase := nonNegative(savings.Sub(spend.Mul(halfMonth).Truncate(0)))

	if rec.CurrentGoal == "" {
		return Limits{
			Status:          StatusNoGoal,
			Message:         "No active goal set.",
			SafeLimitNoGoal: safeNoGoal.IntPart(),
			MaxLimit:        maxBase.IntPart(),
			GoalValue:       "N/A",
			ImpactAnalysis:  "Set a financial goal to generate smart payment limits.",
		}
	}

	timeline := "Unknown"
	if rec.GoalPlan != nil && rec.GoalPlan.Timeline != "" {
		timeline = rec.GoalPlan.Timeline
	}
	months := GoalMonths(timeline)

	goal := decimal.NewFromInt(rec.GoalAmount)
	monthly := decimal.Zero
	if months > 0 && goal.IsPositive() {
		monthly = goal.Div(decimal.NewFromInt(int64(months))).Truncate(0)
	}
	total := monthly.Mul(decimal.NewFromInt(int64(months)))

	safe := nonNegative(savings.Sub(total).Sub(emergency))
	maxLimit := nonNegative(savings.Sub(emergency))
	if goal.IsZero() || goal.LessThan(debt) {
		safe = decimal.Min(debt, savings.Mul(debtSafeShare).Truncate(0))
		maxLimit = decimal.Min(debt, savings.Mul(debtMaxShare).Truncate(0))
	}

	goalValue := "Goal-focused savings"
	if goal.IsPositive() {
		goalValue = "$" + thousands(goal.IntPart())
	}
	safeInt := safe.IntPart()
	return Limits{
		Status:          StatusActive,
		SafeLimit:       &safeInt,
		SafeLimitNoGoal: safeNoGoal.IntPart(),
		MaxLimit:        maxLimit.IntPart(),
		GoalValue:       goalValue,
		ImpactAnalysis: fmt.Sprintf(
			"Calculated based on your %s timeline: You need to save $%s/month. Paying more than $%s would jeopardize your ability to reach '%s' on schedule.",
			timeline, thousands(monthly.IntPart()), thousands(safeInt), rec.CurrentGoal),
	}
}

// GoalMonths reads the horizon of a timeline such as "6-12 months", using
// the last number. Timelines not expressed in months count as a year.
func GoalMonths(timeline string) int {
	if !strings.Contains(strings.ToLower(timeline), "month") {
		return defaultGoalMonths
	}
	nums := digits.FindAllString(timeline, -1)
	if len(nums) == 0 {
		return defaultGoalMonths
	}
	n, err := strconv.Atoi(nums[len(nums)-1])
	if err != nil {
		return defaultGoalMonths
	}
	return n
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
