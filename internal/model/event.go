package model

import "strings"

// EventType is the scoring-relevant kind of a transaction.
type EventType string

const (
	EventEMIRepayment      EventType = "EMI_Repayment"
	EventCCFullPayment     EventType = "CC_Full_Payment"
	EventCCMinPayment      EventType = "CC_Min_Payment"
	EventLoanRepayment     EventType = "Loan_Repayment"
	EventCreditInquiry     EventType = "Credit_Inquiry"
	EventNewAccount        EventType = "New_Account_Opened"
	EventLargePurchase     EventType = "Large_Purchase"
	EventCashAdvance       EventType = "Cash_Advance"
	EventSalaryCredit      EventType = "Salary_Credit"
	EventNormalTransaction EventType = "Normal_Transaction"
)

// StatusKind is the settled outcome a status string describes.
type StatusKind int

const (
	StatusOther StatusKind = iota
	StatusDelinquent
	StatusPaid
	StatusCompleted
)

func (k StatusKind) String() string {
	switch k {
	case StatusDelinquent:
		return "Delinquent"
	case StatusPaid:
		return "Paid"
	case StatusCompleted:
		return "Completed"
	default:
		return "Other"
	}
}

// EventStatus is the parsed form of a transaction status.
type EventStatus struct {
	Kind     StatusKind
	DaysLate int // set only for StatusDelinquent

	// Ambiguous marks statuses that carry both a delinquency marker and a
	// settlement marker ("Paid"/"Completed"). Kind resolves to StatusDelinquent.
	Ambiguous bool
}

// Delinquent reports whether the status is a late or missed payment.
func (s EventStatus) Delinquent() bool { return s.Kind == StatusDelinquent }

// ParseStatus classifies a free-text status. "Late" and "Missed" win over
// "Paid", which wins over "Completed".
func ParseStatus(status string) EventStatus {
	late := strings.Contains(status, "Late") || strings.Contains(status, "Missed")
	paid := strings.Contains(status, "Paid")
	completed := strings.Contains(status, "Completed")

	switch {
	case late:
		return EventStatus{
			Kind:      StatusDelinquent,
			DaysLate:  daysLate(status),
			Ambiguous: paid || completed,
		}
	case paid:
		return EventStatus{Kind: StatusPaid}
	case completed:
		return EventStatus{Kind: StatusCompleted}
	default:
		return EventStatus{Kind: StatusOther}
	}
}

func daysLate(status string) int {
	switch {
	case strings.Contains(status, "90"):
		return 90
	case strings.Contains(status, "60"):
		return 60
	default:
		return 30
	}
}
