// Package api serves the credit approval routes and the credit-default
// classifier routes over net/http.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/driftlog"
	"credit-scoring/internal/models"
	"credit-scoring/internal/scoring"
	"credit-scoring/internal/serving"
)

const (
	Name    = "Credit API"
	Version = "0.1.0"

	DefaultMaxBodyBytes = 1 << 20
)

// Dependencies is everything a Server needs. Scorer, Counter and Logger are
// required; a nil Drift disables drift logging and a nil Classifier answers
// the /default routes with MODEL_UNAVAILABLE.
type Dependencies struct {
	Scorer       *scoring.Scorer
	Counter      *metrics.RequestCounter
	Drift        *driftlog.Logger
	Classifier   *serving.Service
	Model        models.ModelInfo
	MaxBodyBytes int64
	Logger       logger.Logger
}

type Server struct {
	deps         Dependencies
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	mux          *http.ServeMux
}

func NewServer(deps Dependencies) *Server {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Counter == nil {
		deps.Counter = metrics.NewRequestCounter()
	}
	if deps.Classifier == nil {
		deps.Classifier = serving.NewService(deps.Logger)
	}

	log := deps.Logger.WithFields(map[string]interface{}{"component": "api"})
	s := &Server{
		deps:         deps,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /{$}", s.handleRoot)
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /metrics", s.handleMetrics)
	s.handle("GET /model", s.handleModel)
	s.handle("POST /predict", s.handlePredict)

	s.handle("GET /default/health", s.handleDefaultHealth)
	s.handle("POST /default/predict", s.handleDefaultPredict)
	s.handle("POST /default/predict_batch", s.handleDefaultPredictBatch)
	s.handle("GET /default/feature_importance", s.handleFeatureImportance)

	s.mux.Handle("GET /metrics/prometheus", instrument("/metrics/prometheus", promhttp.Handler()))
}

func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(routeOf(pattern), fn))
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		requestID,
		accessLog(s.logger),
		limitBody(s.deps.MaxBodyBytes),
	)
}

func (s *Server) Counter() *metrics.RequestCounter {
	return s.deps.Counter
}
