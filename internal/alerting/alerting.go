package alerting

import (
	"fmt"

	"LuminCredit/internal/model"
)

// LargeTransactionThreshold is the amount above which a non-EMI event is flagged.
const LargeTransactionThreshold = 50000

// Check scans the record's events and returns the alerts they raise.
// Every event that raises an alert is marked with Alert = true in place.
func Check(rec *model.UserFinancialRecord) []model.Alert {
	alerts := make([]model.Alert, 0)
	if rec == nil {
		return alerts
	}
	for i := range rec.Transactions {
		tx := &rec.Transactions[i]
		status := tx.ParsedStatus()
		raised := false

		if tx.Amount > LargeTransactionThreshold && tx.Type != model.EventEMIRepayment {
			alerts = append(alerts, model.Alert{
				Type:     model.AlertSpending,
				Severity: model.SeverityMedium,
				Message:  fmt.Sprintf("Large transaction detected: $%d (%s)", tx.Amount, tx.Type),
			})
			raised = true
		}
		if status.Delinquent() {
			alerts = append(alerts, model.Alert{
				Type:     model.AlertViolation,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("Payment Issue: %s for $%d", tx.Status, tx.Amount),
			})
			raised = true
		}
		if status.Ambiguous {
			alerts = append(alerts, model.Alert{
				Type:     model.AlertDataQuality,
				Severity: model.SeverityLow,
				Message:  fmt.Sprintf("Ambiguous payment status %q on %s, treated as delinquent", tx.Status, tx.Date),
			})
			raised = true
		}
		if raised {
			tx.Alert = true
		}
	}
	return alerts
}

// BySeverity filters alerts to the given severity.
func BySeverity(alerts []model.Alert, sev model.Severity) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}
