// Package serving exposes the latest trained credit-default classifier.
package serving

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/models"
	"credit-scoring/internal/tracking"
	"credit-scoring/internal/training"
)

var errNotLoaded = errors.New("no trained model has been loaded")

// Health mirrors the classifier health payload.
type Health struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ScalerLoaded bool   `json:"scaler_loaded"`
	NFeatures    int    `json:"n_features"`
	RunID        string `json:"run_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Service holds the loaded artifacts. A Service that failed to load stays
// usable: Health reports the problem and predictions return
// MODEL_UNAVAILABLE.
type Service struct {
	mu       sync.RWMutex
	model    training.Model
	scaler   *training.Scaler
	features []string
	runID    string
	loadErr  error
	logger   logger.Logger
}

func NewService(log logger.Logger) *Service {
	return &Service{
		logger:  log.WithFields(map[string]interface{}{"component": "serving"}),
		loadErr: errNotLoaded,
	}
}

// Load fetches the model, scaler and feature names from the latest finished
// run of experiment. On failure the previous artifacts are kept.
func (s *Service) Load(ctx context.Context, store tracking.Store, experiment string) error {
	model, scaler, features, runID, err := load(ctx, store, experiment)
	if err != nil {
		s.mu.Lock()
		if s.model == nil {
			s.loadErr = err
		}
		s.mu.Unlock()
		s.logger.Warn("could not load model", map[string]interface{}{
			"experiment": experiment,
			"error":      err,
		})
		return apperrors.NewModelUnavailableError(err)
	}

	s.mu.Lock()
	s.model, s.scaler, s.features, s.runID, s.loadErr = model, scaler, features, runID, nil
	s.mu.Unlock()

	s.logger.Info("model loaded", map[string]interface{}{
		"runId":    runID,
		"features": len(features),
	})
	return nil
}

func load(ctx context.Context, store tracking.Store, experiment string) (training.Model, *training.Scaler, []string, string, error) {
	if store == nil {
		return nil, nil, nil, "", errors.New("tracking store is not configured")
	}
	run, err := store.LatestRun(ctx, experiment)
	if err != nil {
		return nil, nil, nil, "", err
	}

	rawModel, err := store.GetArtifact(ctx, run.ID, training.ArtifactModel)
	if err != nil {
		return nil, nil, nil, "", err
	}
	model, err := training.LoadModel(rawModel)
	if err != nil {
		return nil, nil, nil, "", err
	}

	rawScaler, err := store.GetArtifact(ctx, run.ID, training.ArtifactScaler)
	if err != nil {
		return nil, nil, nil, "", err
	}
	scaler, err := training.LoadScaler(rawScaler)
	if err != nil {
		return nil, nil, nil, "", err
	}

	rawNames, err := store.GetArtifact(ctx, run.ID, training.ArtifactFeatureNames)
	if err != nil {
		return nil, nil, nil, "", err
	}
	var features []string
	for _, f := range strings.Split(string(rawNames), "\n") {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}

	if len(features) != model.NumFeatures() || len(features) != len(scaler.Mean) {
		return nil, nil, nil, "", fmt.Errorf("run %s: %d feature names, model expects %d, scaler expects %d",
			run.ID, len(features), model.NumFeatures(), len(scaler.Mean))
	}
	return model, scaler, features, run.ID, nil
}

func (s *Service) snapshot() (training.Model, *training.Scaler, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, nil, nil, apperrors.NewModelUnavailableError(s.loadErr)
	}
	return s.model, s.scaler, s.features, nil
}

// Predict scores one application.
func (s *Service) Predict(app models.CreditDefaultApplication) (models.DefaultPrediction, error) {
	out, err := s.PredictBatch([]models.CreditDefaultApplication{app})
	if err != nil {
		return models.DefaultPrediction{}, err
	}
	return out[0], nil
}

// PredictBatch scores applications in order.
func (s *Service) PredictBatch(apps []models.CreditDefaultApplication) ([]models.DefaultPrediction, error) {
	model, scaler, features, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, len(apps))
	for i, app := range apps {
		values := app.Features()
		row := make([]float64, len(features))
		for j, f := range features {
			v, ok := values[f]
			if !ok {
				return nil, apperrors.NewInternalError(fmt.Errorf("model feature %q is not part of the application", f))
			}
			row[j] = v
		}
		rows[i] = row
	}

	scaled, err := scaler.Transform(rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	out := make([]models.DefaultPrediction, len(scaled))
	for i, x := range scaled {
		p := model.PredictProba(x)
		pred := models.DefaultPrediction{
			Prediction:  model.Predict(x),
			Probability: p,
			RiskLevel:   models.RiskLevelFor(p),
		}
		metrics.DefaultPredictions.WithLabelValues(string(pred.RiskLevel)).Inc()
		out[i] = pred
	}
	return out, nil
}

func (s *Service) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := Health{
		Status:       "healthy",
		ModelLoaded:  s.model != nil,
		ScalerLoaded: s.scaler != nil,
		NFeatures:    len(s.features),
		RunID:        s.runID,
	}
	if s.model == nil && s.loadErr != nil {
		h.Error = s.loadErr.Error()
	}
	return h
}

// FeatureImportance returns importances ordered from most to least
// important.
func (s *Service) FeatureImportance() ([]models.FeatureImportance, error) {
	model, _, features, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	imp := model.FeatureImportances()
	out := make([]models.FeatureImportance, len(features))
	for i, f := range features {
		out[i] = models.FeatureImportance{Feature: f, Importance: imp[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out, nil
}
