package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: credit-api\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Scoring.Threshold)
	assert.Equal(t, []string{"file"}, cfg.DriftLog.Sinks)
	assert.Equal(t, "logs/input_samples.jsonl", cfg.DriftLog.Path)
	assert.Equal(t, 1, cfg.Batch.Workers)
	assert.Equal(t, 10, cfg.Training.MaxDepth)
	assert.Equal(t, 20, cfg.Training.MinSamplesSplit)
	assert.Equal(t, 10, cfg.Training.MinSamplesLeaf)
	assert.Equal(t, "gini", cfg.Training.Criterion)
	assert.Equal(t, int64(42), cfg.Training.RandomState)
	assert.Equal(t, "sqlite", cfg.Tracking.Driver)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
}

func TestLoadFromFile_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9001
drift_log:
  sinks: [file, redis]
  path: /tmp/drift.jsonl
training:
  criterion: entropy
  max_depth: 4
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.True(t, cfg.DriftLog.HasSink("redis"))
	assert.False(t, cfg.DriftLog.HasSink("elasticsearch"))
	assert.Equal(t, "entropy", cfg.Training.Criterion)
	assert.Equal(t, 4, cfg.Training.MaxDepth)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("SCORING_THRESHOLD", "0.7")
	path := writeConfig(t, "server:\n  port: 9001\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Scoring.Threshold)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("CREDIT_TEST_TOPIC", "arn:aws:sns:us-east-1:123:batch")
	path := writeConfig(t, `
notifications:
  sns:
    enabled: true
    topic_arn: ${CREDIT_TEST_TOPIC}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:batch", cfg.Notifications.SNS.TopicARN)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown sink", "drift_log:\n  sinks: [kafka]\n"},
		{"bad criterion", "training:\n  criterion: mse\n"},
		{"bad driver", "tracking:\n  driver: mysql\n"},
		{"threshold out of range", "scoring:\n  threshold: 1.5\n"},
		{"bad test size", "training:\n  test_size: 1.0\n"},
		{"sns without topic", "notifications:\n  sns:\n    enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestServerAddrAndDSN(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8000", ServerConfig{Host: "127.0.0.1", Port: 8000}.Addr())

	dsn := PostgresConfig{
		Host: "db", Port: 5432, Database: "credit",
		User: "u", Password: "p@ss", SSLMode: "disable",
	}.GetDSN()
	assert.Equal(t, "postgres://u:p%40ss@db:5432/credit?sslmode=disable", dsn)
}
