// internal/workers/scoring/score-application/handler.go
package scoreapplication

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/common/validation"
	"credit-scoring/internal/scoring"
)

const (
	TaskType = "score-application"

	statusCompleteFailed = "complete_failed"
)

type Handler struct {
	config       *Config
	scorer       *scoring.Scorer
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
}

func NewHandler(cfg *Config, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		scorer:       scoring.New(cfg.Threshold),
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job.GetVariables())
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, input)
	}

	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
	} else if err = h.completeJob(ctx, client, job, output); err != nil {
		// the broker re-activates the job once its timeout lapses
		status = statusCompleteFailed
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, statusCompleteFailed).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}

	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, elapsed, status)
}

// parseInput validates the job variables against the application schema.
// Variables other than the application fields are ignored.
func (h *Handler) parseInput(variables string) (*Input, error) {
	if res := validation.ApplicationRecord.ValidateJSON([]byte(variables)); !res.Valid {
		return nil, res.Err()
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(variables)))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.NewInternalError(err)
	}
	rec, err := scoring.RecordFromMap(fields)
	if err != nil {
		return nil, errors.NewValidationError([]errors.FieldError{{
			Field:   "body",
			Message: err.Error(),
			Code:    "invalid_type",
		}})
	}
	return &Input{Application: rec}, nil
}

// Execute scores a validated application.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}

	result := h.scorer.Score(input.Application)
	h.logger.Info("application scored", map[string]interface{}{
		"prediction": string(result.Prediction),
		"confidence": result.Confidence,
	})

	return &Output{
		Prediction: result.Prediction,
		Confidence: result.Confidence,
		Approved:   result.Approved(),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		return errors.NewInternalError(err)
	}
	return nil
}
