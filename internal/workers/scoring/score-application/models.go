// internal/workers/scoring/score-application/models.go
package scoreapplication

import "credit-scoring/internal/models"

// Input is the job variables; only the application fields are read.
type Input struct {
	Application models.ApplicationRecord
}

type Output struct {
	Prediction models.Decision `json:"prediction"`
	Confidence float64         `json:"confidence"`
	Approved   bool            `json:"approved"`
}
