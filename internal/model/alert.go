package model

// AlertType groups alerts by what triggered them.
type AlertType string

const (
	AlertSpending    AlertType = "SPENDING"
	AlertViolation   AlertType = "VIOLATION"
	AlertDataQuality AlertType = "DATA_QUALITY"
)

// Severity of an alert.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Alert is a descriptor produced by the alerting pass.
type Alert struct {
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}
