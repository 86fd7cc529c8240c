// Package scoring implements the rule-based credit scorer.
package scoring

import (
	"fmt"
	"math"

	"credit-scoring/internal/models"
)

const (
	DefaultThreshold = 0.6
	baseScore        = 0.5
)

// Scorer is a pure function of its threshold and the input record.
type Scorer struct {
	threshold float64
}

// New returns a Scorer; a non-positive threshold selects DefaultThreshold.
func New(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{threshold: threshold}
}

func (s *Scorer) Threshold() float64 { return s.threshold }

// Score computes the decision and confidence for rec.
func (s *Scorer) Score(rec models.ApplicationRecord) models.ScoreResult {
	return s.score(float64(rec.Age), rec.Income, rec.LoanAmount, rec.CreditHistory)
}

func (s *Scorer) score(age, income, loanAmount float64, history models.CreditHistory) models.ScoreResult {
	score := baseScore

	switch history {
	case models.CreditHistoryGood:
		score += 0.3
	case models.CreditHistoryFair:
		score += 0.1
	}

	if age >= 25 && age <= 55 {
		score += 0.1
	}

	switch {
	case income > 3*loanAmount:
		score += 0.2
	case income > 2*loanAmount:
		score += 0.1
	}

	score = math.Min(1, math.Max(0, score))
	confidence := round3(score)

	decision := models.DecisionRejected
	if score >= s.threshold {
		decision = models.DecisionApproved
	}

	return models.ScoreResult{Prediction: decision, Confidence: confidence}
}

// PredictOne scores a loosely typed record, filling missing fields with the
// legacy defaults: age 0, income 0, loan_amount 0, credit_history poor.
// Numbers are compared as given, so a fractional age is never rounded into
// the age band. A numeric field holding a non-number (null included) is an
// error; a non-string credit_history earns no history bonus.
func (s *Scorer) PredictOne(fields map[string]interface{}) (models.ScoreResult, error) {
	v, err := readFields(fields)
	if err != nil {
		return models.ScoreResult{}, err
	}
	return s.score(v.age, v.income, v.loanAmount, v.history), nil
}

// RecordFromMap converts a decoded JSON object into an ApplicationRecord.
// Missing fields take the PredictOne defaults; a fractional age is rejected
// since the record stores whole years.
func RecordFromMap(fields map[string]interface{}) (models.ApplicationRecord, error) {
	v, err := readFields(fields)
	if err != nil {
		return models.ApplicationRecord{}, err
	}
	if v.age != math.Trunc(v.age) {
		return models.ApplicationRecord{}, fmt.Errorf("age: non-integral value %v", v.age)
	}
	return models.ApplicationRecord{
		Age:           int(v.age),
		Income:        v.income,
		LoanAmount:    v.loanAmount,
		CreditHistory: v.history,
	}, nil
}

type rawFields struct {
	age, income, loanAmount float64
	history                 models.CreditHistory
}

func readFields(fields map[string]interface{}) (rawFields, error) {
	v := rawFields{history: models.CreditHistoryPoor}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"age", &v.age},
		{"income", &v.income},
		{"loan_amount", &v.loanAmount},
	} {
		raw, present := fields[f.name]
		if !present {
			continue
		}
		n, ok := number(raw)
		if !ok {
			return rawFields{}, fmt.Errorf("%s: expected a number, got %T", f.name, raw)
		}
		*f.dst = n
	}
	if h, ok := fields["credit_history"].(string); ok {
		v.history = models.CreditHistory(h)
	}
	return v, nil
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
