package calculator

import (
	"math"

	"LuminCredit/internal/model"
)

const (
	scoreFloor          = 300.0
	paymentHistoryScale = 3.5   // 0-100 metric -> 0-350 points
	utilizationScale    = 200.0 // 0% utilization -> 200 points
)

// Overrides maps a profile id to a fixed score that bypasses the formula.
type Overrides map[string]int

// ScoreCalculator computes the bounded base score of a record.
type ScoreCalculator struct {
	Overrides Overrides
}

// NewScoreCalculator creates a calculator with the given override table.
func NewScoreCalculator(overrides Overrides) *ScoreCalculator {
	return &ScoreCalculator{Overrides: overrides}
}

// BaseScore returns the score in [300, 900]. Overridden profiles return their
// configured score unchanged. A nil weight set applies the default inquiry and
// new-account penalties; the other weights do not affect the base score.
func (c *ScoreCalculator) BaseScore(rec *model.UserFinancialRecord, weights *model.ImpactWeightSet) int {
	if c != nil {
		if fixed, ok := c.Overrides[rec.Username]; ok {
			return fixed
		}
	}
	return CalculateBaseScore(rec, weights)
}

// CalculateBaseScore applies the scoring formula without consulting overrides.
func CalculateBaseScore(rec *model.UserFinancialRecord, weights *model.ImpactWeightSet) int {
	w := model.DefaultPolicy().ProvisionalPenalties
	if weights != nil {
		w = *weights
	}

	paymentImpact := rec.PaymentHistoryMetric() * paymentHistoryScale
	utilImpact := UtilizationImpact(rec.Utilization)

	inquiries := CountInWindow(rec.Transactions, model.EventCreditInquiry)
	newAccounts := CountInWindow(rec.Transactions, model.EventNewAccount)
	penalty := float64(inquiries)*float64(w.InquiryPenalty) + float64(newAccounts)*float64(w.NewAccountPenalty)

	raw := scoreFloor + paymentImpact + utilImpact - penalty
	if math.IsNaN(raw) {
		return model.MinScore
	}
	// Guard the int conversion against infinities before truncating.
	raw = math.Max(math.Min(raw, model.MaxScore+1), model.MinScore-1)
	return model.ClampScore(int(raw))
}

// UtilizationImpact returns the utilization contribution: 200 at 0%, falling
// linearly to 0 at 100% and staying 0 above it.
func UtilizationImpact(utilization float64) float64 {
	return math.Max(0, (1.0-utilization)*utilizationScale)
}
