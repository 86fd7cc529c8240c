// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	validDriftSinks = map[string]bool{"file": true, "redis": true, "elasticsearch": true}
	validCriteria   = map[string]bool{"gini": true, "entropy": true}
	validDrivers    = map[string]bool{"sqlite": true, "postgres": true}
)

// Load reads configs/config.yaml (if present), merges config.<env>.yaml,
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// registerDefaults makes every key known to viper so that environment
// variables such as SERVER_PORT or DRIFT_LOG_SINKS override it.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "credit-api")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10000)
	v.SetDefault("server.write_timeout", 10000)
	v.SetDefault("server.shutdown_timeout", 15000)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("scoring.model_type", "simulated")
	v.SetDefault("scoring.model_version", "0.1.0")
	v.SetDefault("scoring.threshold", 0.6)

	v.SetDefault("drift_log.sinks", []string{"file"})
	v.SetDefault("drift_log.path", "logs/input_samples.jsonl")
	v.SetDefault("drift_log.redis_key", "credit:drift:samples")
	v.SetDefault("drift_log.es_index", "credit-drift-samples")
	v.SetDefault("drift_log.timeout", 2000)

	v.SetDefault("batch.workers", 1)
	v.SetDefault("batch.skip_invalid", false)
	v.SetDefault("batch.timeout", 300000)
	v.SetDefault("batch.notify", false)

	v.SetDefault("training.data_path", "")
	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("training.synthetic_rows", 5000)
	v.SetDefault("training.max_depth", 10)
	v.SetDefault("training.min_samples_split", 20)
	v.SetDefault("training.min_samples_leaf", 10)
	v.SetDefault("training.criterion", "gini")
	v.SetDefault("training.random_state", 42)
	v.SetDefault("training.experiment", "credit_default_prediction")
	v.SetDefault("training.run_name", "decision_tree_baseline")

	v.SetDefault("tracking.driver", "sqlite")
	v.SetDefault("tracking.sqlite_path", "mlruns/tracking.db")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "credit")
	v.SetDefault("database.postgres.user", "credit")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.elasticsearch.addresses", []string{"http://localhost:9200"})

	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "localhost:26500")

	v.SetDefault("notifications.sns.enabled", false)
	v.SetDefault("notifications.sns.region", "us-east-1")
	v.SetDefault("notifications.sns.topic_arn", "")
	v.SetDefault("notifications.ses.enabled", false)
	v.SetDefault("notifications.ses.region", "us-east-1")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// applyDefaults fills values that cannot be expressed as viper defaults
// because a zero value was explicitly configured.
func applyDefaults(cfg *Config) {
	if cfg.Scoring.Threshold == 0 {
		cfg.Scoring.Threshold = 0.6
	}
	if len(cfg.DriftLog.Sinks) == 0 {
		cfg.DriftLog.Sinks = []string{"file"}
	}
	if cfg.DriftLog.Timeout == 0 {
		cfg.DriftLog.Timeout = 2000
	}
	if cfg.Batch.Workers < 1 {
		cfg.Batch.Workers = 1
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 5
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Threshold < 0 || cfg.Scoring.Threshold > 1 {
		return fmt.Errorf("scoring.threshold must be within [0,1], got %v", cfg.Scoring.Threshold)
	}
	for _, s := range cfg.DriftLog.Sinks {
		if !validDriftSinks[s] {
			return fmt.Errorf("drift_log.sinks: unknown sink %q", s)
		}
	}
	if cfg.DriftLog.HasSink("file") && cfg.DriftLog.Path == "" {
		return fmt.Errorf("drift_log.path is required for the file sink")
	}
	if cfg.Training.TestSize <= 0 || cfg.Training.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be within (0,1), got %v", cfg.Training.TestSize)
	}
	if !validCriteria[cfg.Training.Criterion] {
		return fmt.Errorf("training.criterion must be gini or entropy, got %q", cfg.Training.Criterion)
	}
	if !validDrivers[cfg.Tracking.Driver] {
		return fmt.Errorf("tracking.driver must be sqlite or postgres, got %q", cfg.Tracking.Driver)
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.SES.Enabled && (cfg.Notifications.SES.From == "" || len(cfg.Notifications.SES.To) == 0) {
		return fmt.Errorf("notifications.ses.from and notifications.ses.to are required when ses is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
