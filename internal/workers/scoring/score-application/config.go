// internal/workers/scoring/score-application/config.go
package scoreapplication

import (
	"time"

	"credit-scoring/internal/common/config"
)

type Config struct {
	Timeout   time.Duration
	Threshold float64
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(cfg.Camunda.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		Timeout:   timeout,
		Threshold: cfg.Scoring.Threshold,
	}
}
