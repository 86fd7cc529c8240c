package api

import (
	"net/http"

	"credit-scoring/internal/common/validation"
	"credit-scoring/internal/models"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": Name,
		"version": Version,
		"docs":    "/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_count": s.deps.Counter.Value(),
		"status":        "healthy",
	})
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	info := s.deps.Model
	info.Threshold = s.deps.Scorer.Threshold()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, s.deps.MaxBodyBytes)
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}

	if res := validation.ApplicationRecord.ValidateJSON(body); !res.Valid {
		s.errorHandler.HandleHTTPError(w, r, res.Err())
		return
	}

	var rec models.ApplicationRecord
	if err := decodeValidated(body, &rec); err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}

	s.logger.Info("predict request", map[string]interface{}{
		"age":            rec.Age,
		"income":         rec.Income,
		"loan_amount":    rec.LoanAmount,
		"credit_history": string(rec.CreditHistory),
	})
	s.deps.Counter.Increment()
	s.deps.Drift.Log(r.Context(), rec)

	result := s.deps.Scorer.Score(rec)
	s.deps.Counter.Observe(result.Prediction)

	s.logger.Info("predict result", map[string]interface{}{
		"prediction": string(result.Prediction),
		"confidence": result.Confidence,
	})
	writeJSON(w, http.StatusOK, result)
}
