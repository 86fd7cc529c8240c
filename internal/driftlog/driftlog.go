// Package driftlog records raw prediction inputs for offline drift analysis.
// Writes are best effort: a failing sink is logged and counted, never
// surfaced to the request that produced the sample.
package driftlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"credit-scoring/internal/common/config"
	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
)

const DefaultPath = "logs/input_samples.jsonl"

type Logger struct {
	sinks   []Sink
	timeout time.Duration
	logger  logger.Logger
}

func New(log logger.Logger, timeout time.Duration, sinks ...Sink) *Logger {
	return &Logger{
		sinks:   sinks,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "driftlog"}),
	}
}

// Log serializes payload once and appends it to every sink. Sinks run in
// order; one failing does not skip the rest.
func (l *Logger) Log(ctx context.Context, payload interface{}) {
	if l == nil || len(l.sinks) == 0 {
		return
	}

	line, err := json.Marshal(payload)
	if err != nil {
		l.warn("encode", apperrors.NewDriftLogWriteFailedError("encode", err))
		return
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	for _, sink := range l.sinks {
		if err := sink.Write(ctx, line); err != nil {
			l.warn(sink.Name(), apperrors.NewDriftLogWriteFailedError(sink.Name(), err))
		}
	}
}

func (l *Logger) warn(sink string, err *apperrors.StandardError) {
	metrics.DriftLogFailures.WithLabelValues(sink).Inc()
	l.logger.Warn("failed to log input sample", map[string]interface{}{
		"sink":      sink,
		"errorCode": string(err.Code),
		"error":     err.Details,
	})
}

// Sinks lists the configured sink names.
func (l *Logger) Sinks() []string {
	names := make([]string, 0, len(l.sinks))
	for _, s := range l.sinks {
		names = append(names, s.Name())
	}
	return names
}

// ErrNoClient marks a configured sink that started without a client.
var ErrNoClient = errors.New("no client configured")

// FromConfig builds the sinks named in cfg. A nil client for an enabled
// sink yields a sink whose writes fail; only an unknown sink name is an
// error.
func FromConfig(cfg config.DriftLogConfig, rdb *redis.Client, es *elasticsearch.Client, log logger.Logger) (*Logger, error) {
	var sinks []Sink
	for _, name := range cfg.Sinks {
		switch name {
		case "file":
			path := cfg.Path
			if path == "" {
				path = DefaultPath
			}
			sinks = append(sinks, NewFileSink(path))
		case "redis":
			if rdb == nil {
				sinks = append(sinks, unavailable(name, log))
				continue
			}
			sinks = append(sinks, NewRedisSink(rdb, cfg.Key))
		case "elasticsearch":
			if es == nil {
				sinks = append(sinks, unavailable(name, log))
				continue
			}
			sinks = append(sinks, NewElasticsearchSink(es, cfg.Index))
		default:
			return nil, fmt.Errorf("unknown drift log sink %q", name)
		}
	}
	return New(log, config.GetDuration(cfg.Timeout), sinks...), nil
}

func unavailable(name string, log logger.Logger) Sink {
	log.Warn("drift log sink has no client, its writes will fail", map[string]interface{}{"sink": name})
	return unavailableSink{name: name, cause: ErrNoClient}
}
