// internal/models/application.go
package models

// CreditHistory is the categorical credit-history label of an applicant.
type CreditHistory string

const (
	CreditHistoryGood CreditHistory = "good"
	CreditHistoryFair CreditHistory = "fair"
	CreditHistoryPoor CreditHistory = "poor"
)

// Valid reports whether h is one of good, fair or poor.
func (h CreditHistory) Valid() bool {
	switch h {
	case CreditHistoryGood, CreditHistoryFair, CreditHistoryPoor:
		return true
	}
	return false
}

// Decision is the binary outcome of the rule-based scorer.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApplicationRecord is a single credit application.
type ApplicationRecord struct {
	Age           int           `json:"age"`
	Income        float64       `json:"income"`
	LoanAmount    float64       `json:"loan_amount"`
	CreditHistory CreditHistory `json:"credit_history"`
}

// ScoreResult is derived deterministically from an ApplicationRecord.
type ScoreResult struct {
	Prediction Decision `json:"prediction"`
	Confidence float64  `json:"confidence"`
}

// Approved is a convenience for counters.
func (r ScoreResult) Approved() bool {
	return r.Prediction == DecisionApproved
}

// ModelInfo describes the rule-based scorer served by the API.
type ModelInfo struct {
	Type      string  `json:"type"`
	Version   string  `json:"version"`
	Threshold float64 `json:"threshold"`
}
