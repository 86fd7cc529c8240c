// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	DriftLog      DriftLogConfig     `mapstructure:"drift_log"`
	Batch         BatchConfig        `mapstructure:"batch"`
	Training      TrainingConfig     `mapstructure:"training"`
	Tracking      TrackingConfig     `mapstructure:"tracking"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ScoringConfig holds the rule-based scorer metadata.
type ScoringConfig struct {
	ModelType    string  `mapstructure:"model_type"`
	ModelVersion string  `mapstructure:"model_version"`
	Threshold    float64 `mapstructure:"threshold"`
}

// DriftLogConfig selects where raw prediction inputs are appended.
type DriftLogConfig struct {
	Sinks   []string `mapstructure:"sinks"` // file, redis, elasticsearch
	Path    string   `mapstructure:"path"`
	Key     string   `mapstructure:"redis_key"`
	Index   string   `mapstructure:"es_index"`
	Timeout int      `mapstructure:"timeout"` // milliseconds
}

type BatchConfig struct {
	Workers     int  `mapstructure:"workers"`
	SkipInvalid bool `mapstructure:"skip_invalid"`
	Timeout     int  `mapstructure:"timeout"` // milliseconds
	Notify      bool `mapstructure:"notify"`
}

// TrainingConfig holds hyperparameters and data settings for the
// credit-default pipeline.
type TrainingConfig struct {
	DataPath        string  `mapstructure:"data_path"`
	TestSize        float64 `mapstructure:"test_size"`
	SyntheticRows   int     `mapstructure:"synthetic_rows"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf"`
	Criterion       string  `mapstructure:"criterion"`
	RandomState     int64   `mapstructure:"random_state"`
	Experiment      string  `mapstructure:"experiment"`
	RunName         string  `mapstructure:"run_name"`
}

// TrackingConfig selects the experiment-tracking backend.
type TrackingConfig struct {
	Driver     string `mapstructure:"driver"` // sqlite or postgres
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.Database,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds batch summary publishing settings.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled bool     `mapstructure:"enabled"`
		Region  string   `mapstructure:"region"`
		From    string   `mapstructure:"from"`
		To      []string `mapstructure:"to"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// HasSink reports whether the drift log writes to the named sink.
func (d DriftLogConfig) HasSink(name string) bool {
	for _, s := range d.Sinks {
		if s == name {
			return true
		}
	}
	return false
}
