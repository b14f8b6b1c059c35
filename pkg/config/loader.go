package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/autoscaler")
	}

	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "service-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Loop defaults
	v.SetDefault("loop.interval", "5m")
	v.SetDefault("loop.metrics_retention", "168h")

	// Orchestrator defaults
	v.SetDefault("orchestrator.endpoint", "http://localhost:8001")
	v.SetDefault("orchestrator.timeout", "10s")
	v.SetDefault("orchestrator.circuit_breaker.max_failures", 5)
	v.SetDefault("orchestrator.circuit_breaker.timeout", "30s")

	// Metrics backend defaults
	v.SetDefault("metrics_backend.endpoint", "http://localhost:9090")
	v.SetDefault("metrics_backend.timeout", "10s")
	v.SetDefault("metrics_backend.step_seconds", 60)
	v.SetDefault("metrics_backend.circuit_breaker.max_failures", 5)
	v.SetDefault("metrics_backend.circuit_breaker.timeout", "30s")

	// Managed database defaults
	v.SetDefault("database.timeout", "15s")
	v.SetDefault("database.instance_classes", []string{
		"db.t3.medium", "db.t3.large", "db.r5.large", "db.r5.xlarge", "db.r5.2xlarge",
	})

	// Scaling bounds and cost model
	v.SetDefault("scaling.min_replicas", 1)
	v.SetDefault("scaling.max_replicas", 100)
	v.SetDefault("scaling.per_replica_hourly_cost", 0.12)
	v.SetDefault("scaling.hours_per_month", 730)
	v.SetDefault("scaling.memory_baseline_bytes", 2147483648)

	// Vertical scaling multipliers
	v.SetDefault("vertical.cpu_limit_multiplier", 2.0)
	v.SetDefault("vertical.memory_limit_multiplier", 1.5)

	// Queue worker sizing
	v.SetDefault("queue.target_queue_depth", 100)
	v.SetDefault("queue.min_workers", 1)
	v.SetDefault("queue.max_workers", 50)

	// Predictor defaults
	v.SetDefault("predictor.enabled", true)
	v.SetDefault("predictor.min_samples", 60)
	v.SetDefault("predictor.confidence_threshold", 0.8)
	v.SetDefault("predictor.rate_per_replica", 100.0)
	v.SetDefault("predictor.forecast_horizon", "15m")
	v.SetDefault("predictor.model_artifact", "")

	// Advisor defaults
	v.SetDefault("advisor.enabled", true)
	v.SetDefault("advisor.lookback", "24h")
	v.SetDefault("advisor.idle_cpu_percent", 10.0)
	v.SetDefault("advisor.idle_rps_ceiling", 1.0)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)

	// Audit sink defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.host", "localhost")
	v.SetDefault("audit.port", 5432)
	v.SetDefault("audit.name", "autoscaler")
	v.SetDefault("audit.user", "autoscaler")
	v.SetDefault("audit.password", "")
	v.SetDefault("audit.ssl_mode", "disable")
	v.SetDefault("audit.max_connections", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.port", 9100)
}
