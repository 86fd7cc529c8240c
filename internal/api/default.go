package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/validation"
	"credit-scoring/internal/models"
)

func (s *Server) handleDefaultHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Classifier.Health())
}

func (s *Server) handleDefaultPredict(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, s.deps.MaxBodyBytes)
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}
	if res := validation.CreditDefaultApplication.ValidateJSON(body); !res.Valid {
		s.errorHandler.HandleHTTPError(w, r, res.Err())
		return
	}

	var app models.CreditDefaultApplication
	if err := decodeValidated(body, &app); err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}

	pred, err := s.deps.Classifier.Predict(app)
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// handleDefaultPredictBatch accepts a JSON array of applications. Field
// errors are prefixed with the element index, e.g. "1.AGE".
func (s *Server) handleDefaultPredictBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, s.deps.MaxBodyBytes)
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		s.errorHandler.HandleHTTPError(w, r, errors.NewValidationError([]errors.FieldError{{
			Field:   "body",
			Message: "request body must be a JSON array of applications",
			Code:    "invalid_json",
		}}))
		return
	}

	var fields []errors.FieldError
	for i, item := range items {
		res := validation.CreditDefaultApplication.ValidateJSON(item)
		for _, fe := range res.Errors {
			fe.Field = fmt.Sprintf("%d.%s", i, fe.Field)
			fields = append(fields, fe)
		}
	}
	if len(fields) > 0 {
		s.errorHandler.HandleHTTPError(w, r, errors.NewValidationError(fields))
		return
	}

	apps := make([]models.CreditDefaultApplication, len(items))
	for i, item := range items {
		if err := decodeValidated(item, &apps[i]); err != nil {
			s.errorHandler.HandleHTTPError(w, r, err)
			return
		}
	}

	preds, err := s.deps.Classifier.PredictBatch(apps)
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preds)
}

func (s *Server) handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	imp, err := s.deps.Classifier.FeatureImportance()
	if err != nil {
		s.errorHandler.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}
