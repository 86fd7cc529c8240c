// internal/models/credit_default.go
package models

// FeatureNames lists the UCI "Default of Credit Card Clients" features in
// training column order.
var FeatureNames = []string{
	"LIMIT_BAL", "SEX", "EDUCATION", "MARRIAGE", "AGE",
	"PAY_0", "PAY_2", "PAY_3", "PAY_4", "PAY_5", "PAY_6",
	"BILL_AMT1", "BILL_AMT2", "BILL_AMT3", "BILL_AMT4", "BILL_AMT5", "BILL_AMT6",
	"PAY_AMT1", "PAY_AMT2", "PAY_AMT3", "PAY_AMT4", "PAY_AMT5", "PAY_AMT6",
}

// CreditDefaultApplication is the input of the default classifier.
type CreditDefaultApplication struct {
	LimitBal  float64 `json:"LIMIT_BAL"`
	Sex       int     `json:"SEX"`
	Education int     `json:"EDUCATION"`
	Marriage  int     `json:"MARRIAGE"`
	Age       int     `json:"AGE"`
	Pay0      int     `json:"PAY_0"`
	Pay2      int     `json:"PAY_2"`
	Pay3      int     `json:"PAY_3"`
	Pay4      int     `json:"PAY_4"`
	Pay5      int     `json:"PAY_5"`
	Pay6      int     `json:"PAY_6"`
	BillAmt1  float64 `json:"BILL_AMT1"`
	BillAmt2  float64 `json:"BILL_AMT2"`
	BillAmt3  float64 `json:"BILL_AMT3"`
	BillAmt4  float64 `json:"BILL_AMT4"`
	BillAmt5  float64 `json:"BILL_AMT5"`
	BillAmt6  float64 `json:"BILL_AMT6"`
	PayAmt1   float64 `json:"PAY_AMT1"`
	PayAmt2   float64 `json:"PAY_AMT2"`
	PayAmt3   float64 `json:"PAY_AMT3"`
	PayAmt4   float64 `json:"PAY_AMT4"`
	PayAmt5   float64 `json:"PAY_AMT5"`
	PayAmt6   float64 `json:"PAY_AMT6"`
}

// Features returns the application keyed by feature name.
func (a CreditDefaultApplication) Features() map[string]float64 {
	return map[string]float64{
		"LIMIT_BAL": a.LimitBal,
		"SEX":       float64(a.Sex),
		"EDUCATION": float64(a.Education),
		"MARRIAGE":  float64(a.Marriage),
		"AGE":       float64(a.Age),
		"PAY_0":     float64(a.Pay0),
		"PAY_2":     float64(a.Pay2),
		"PAY_3":     float64(a.Pay3),
		"PAY_4":     float64(a.Pay4),
		"PAY_5":     float64(a.Pay5),
		"PAY_6":     float64(a.Pay6),
		"BILL_AMT1": a.BillAmt1,
		"BILL_AMT2": a.BillAmt2,
		"BILL_AMT3": a.BillAmt3,
		"BILL_AMT4": a.BillAmt4,
		"BILL_AMT5": a.BillAmt5,
		"BILL_AMT6": a.BillAmt6,
		"PAY_AMT1":  a.PayAmt1,
		"PAY_AMT2":  a.PayAmt2,
		"PAY_AMT3":  a.PayAmt3,
		"PAY_AMT4":  a.PayAmt4,
		"PAY_AMT5":  a.PayAmt5,
		"PAY_AMT6":  a.PayAmt6,
	}
}

// RiskLevel buckets a default probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelFor returns low below 0.3, medium below 0.7 and high otherwise.
func RiskLevelFor(probability float64) RiskLevel {
	switch {
	case probability < 0.3:
		return RiskLow
	case probability < 0.7:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// DefaultPrediction is the output of the default classifier.
type DefaultPrediction struct {
	Prediction  int       `json:"prediction"`
	Probability float64   `json:"probability"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// FeatureImportance pairs a feature with its impurity-based importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}
