// Package tracking stores training runs, their parameters, metrics and
// artifacts so the serving layer can load the latest model.
package tracking

import (
	"context"
	"errors"
	"time"
)

const (
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
)

var (
	ErrRunNotFound      = errors.New("tracking: no finished run found")
	ErrArtifactNotFound = errors.New("tracking: artifact not found")
)

type Run struct {
	ID         string             `json:"run_id"`
	Experiment string             `json:"experiment"`
	Name       string             `json:"run_name"`
	Status     string             `json:"status"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    *time.Time         `json:"end_time,omitempty"`
	Params     map[string]string  `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

type Store interface {
	CreateRun(ctx context.Context, experiment, name string) (*Run, error)
	LogParams(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error
	LogArtifact(ctx context.Context, runID, name string, content []byte) error
	EndRun(ctx context.Context, runID, status string) error
	// LatestRun returns the most recently started finished run.
	LatestRun(ctx context.Context, experiment string) (*Run, error)
	GetArtifact(ctx context.Context, runID, name string) ([]byte, error)
	Close() error
}
