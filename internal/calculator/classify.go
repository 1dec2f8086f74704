package calculator

import "LuminCredit/internal/model"

// TrailingMonths is the length of the scoring window in months.
const TrailingMonths = 12

// InTrailingWindow reports whether a month offset falls in the trailing 12 months.
func InTrailingWindow(offset int) bool {
	return offset >= 0 && offset < TrailingMonths
}

// IsDelinquent reports whether the event is a late or missed payment.
func IsDelinquent(tx model.TransactionEvent) bool {
	return tx.ParsedStatus().Delinquent()
}

// CountInWindow counts events of the given type inside the trailing window.
func CountInWindow(txs []model.TransactionEvent, typ model.EventType) int {
	n := 0
	for _, tx := range txs {
		if tx.Type == typ && InTrailingWindow(tx.MonthOffset) {
			n++
		}
	}
	return n
}

// BucketByOffset groups in-window events by month offset. Index 0 is the
// current month. Events keep their input order within a bucket.
func BucketByOffset(txs []model.TransactionEvent) [TrailingMonths][]model.TransactionEvent {
	var buckets [TrailingMonths][]model.TransactionEvent
	for _, tx := range txs {
		if InTrailingWindow(tx.MonthOffset) {
			buckets[tx.MonthOffset] = append(buckets[tx.MonthOffset], tx)
		}
	}
	return buckets
}
