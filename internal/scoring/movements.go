package scoring

import (
	"fmt"

	"LuminCredit/internal/model"
)

// Canned movement reasons.
const (
	ReasonInquiry       = "Hard credit inquiry detected."
	ReasonCashAdvance   = "Cash advance usage."
	ReasonLargePurchase = "High utilization from large purchase."
	ReasonEMI           = "On-time EMI repayment."
	ReasonCCFull        = "Full credit card bill payment."
	ReasonRoutine       = "Routine credit activity."
)

var (
	negativeCauses = []struct {
		typ    model.EventType
		reason string
	}{
		{model.EventCreditInquiry, ReasonInquiry},
		{model.EventCashAdvance, ReasonCashAdvance},
		{model.EventLargePurchase, ReasonLargePurchase},
	}
	positiveCauses = []struct {
		typ    model.EventType
		reason string
	}{
		{model.EventEMIRepayment, ReasonEMI},
		{model.EventCCFullPayment, ReasonCCFull},
	}
)

// Explain attributes every month-over-month change of at least one point to
// the most salient event of the later month. The result is newest first.
func Explain(rec *model.UserFinancialRecord, trend []model.ScoreTrendPoint) []model.MovementRecord {
	if len(trend) < 2 {
		return []model.MovementRecord{}
	}

	movements := make([]model.MovementRecord, 0, len(trend)-1)
	for i := 0; i+1 < len(trend); i++ {
		change := trend[i+1].Score - trend[i].Score
		if change == 0 {
			continue
		}
		offset := len(trend) - 1 - (i + 1)
		movements = append(movements, model.MovementRecord{
			Date:   "In " + trend[i+1].Month,
			Change: fmt.Sprintf("%+d", change),
			Reason: movementReason(rec.EventsAt(offset), change),
		})
	}

	for l, r := 0, len(movements)-1; l < r; l, r = l+1, r-1 {
		movements[l], movements[r] = movements[r], movements[l]
	}
	return movements
}

// movementReason picks the cause of a change: a delinquency first, whatever
// the sign, then type-based causes matching the direction of the change.
func movementReason(txs []model.TransactionEvent, change int) string {
	for _, tx := range txs {
		if tx.ParsedStatus().Delinquent() {
			return fmt.Sprintf("Missed payment of $%d.", tx.Amount)
		}
	}

	causes := positiveCauses
	if change < 0 {
		causes = negativeCauses
	}
	for _, c := range causes {
		if hasType(txs, c.typ) {
			return c.reason
		}
	}
	return ReasonRoutine
}

func hasType(txs []model.TransactionEvent, typ model.EventType) bool {
	for _, tx := range txs {
		if tx.Type == typ {
			return true
		}
	}
	return false
}
