package scoring

import (
	"time"

	"LuminCredit/internal/calculator"
	"LuminCredit/internal/model"
)

// Baseline is the neutral starting score of every reconstruction. It only
// scaffolds the curve; the final shift discards it.
const Baseline = 720

// Reconstruct back-fills a 12-month score trend, oldest first, whose last
// point equals current (after clamping to [300, 900]).
//
// Events are replayed month by month from Baseline. The raw curve is then
// shifted so that its final raw value lands exactly on current, and only then
// is every point clamped.
func Reconstruct(rec *model.UserFinancialRecord, current int, w model.ImpactWeightSet, anchor time.Time) []model.ScoreTrendPoint {
	buckets := calculator.BucketByOffset(rec.Transactions)

	raw := make([]int, 0, calculator.TrailingMonths)
	running := Baseline
	for offset := calculator.TrailingMonths - 1; offset >= 0; offset-- {
		for _, tx := range buckets[offset] {
			running += EventDelta(tx, w)
		}
		raw = append(raw, running)
	}

	diff := current - raw[len(raw)-1]

	history := make([]model.ScoreTrendPoint, len(raw))
	for i, s := range raw {
		offset := len(raw) - 1 - i
		history[i] = model.ScoreTrendPoint{
			Month: MonthLabel(anchor, offset),
			Score: model.ClampScore(s + diff),
		}
	}
	return history
}

// EventDelta is the signed point change a single event applies to the
// running score. Status and type adjustments stack.
func EventDelta(tx model.TransactionEvent, w model.ImpactWeightSet) int {
	delta := 0

	switch tx.ParsedStatus().Kind {
	case model.StatusDelinquent:
		delta -= w.LatePayment
	case model.StatusPaid:
		delta += w.CCFullPayment
	case model.StatusCompleted:
		delta += w.EMIRepayment
	}

	switch tx.Type {
	case model.EventCreditInquiry:
		delta -= w.InquiryPenalty
	case model.EventCashAdvance, model.EventLargePurchase:
		delta -= w.LargePurchasePenalty
	case model.EventNewAccount:
		delta -= w.NewAccountPenalty
	}
	return delta
}

// MonthLabel returns the short calendar name of the month offset months
// before anchor ("Dec", "Nov", ...).
func MonthLabel(anchor time.Time, offset int) string {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -offset, 0).Format("Jan")
}
