package config

import (
	"time"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

type Config struct {
	App            AppConfig                 `mapstructure:"app"`
	Loop           LoopConfig                `mapstructure:"loop"`
	Services       []models.MonitoredService `mapstructure:"services"`
	Orchestrator   OrchestratorConfig        `mapstructure:"orchestrator"`
	MetricsBackend MetricsBackendConfig      `mapstructure:"metrics_backend"`
	Database       DBAdminConfig             `mapstructure:"database"`
	Scaling        ScalingConfig             `mapstructure:"scaling"`
	Vertical       VerticalConfig            `mapstructure:"vertical"`
	Queue          QueueConfig               `mapstructure:"queue"`
	Predictor      PredictorConfig           `mapstructure:"predictor"`
	Advisor        AdvisorConfig             `mapstructure:"advisor"`
	Events         EventsConfig              `mapstructure:"events"`
	Audit          AuditConfig               `mapstructure:"audit"`
	Telemetry      TelemetryConfig           `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoopConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	MetricsRetention time.Duration `mapstructure:"metrics_retention"`
}

type OrchestratorConfig struct {
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type MetricsBackendConfig struct {
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	StepSeconds    int                  `mapstructure:"step_seconds"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type DBAdminConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
	InstanceClasses []string      `mapstructure:"instance_classes"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ScalingConfig struct {
	MinReplicas          int     `mapstructure:"min_replicas"`
	MaxReplicas          int     `mapstructure:"max_replicas"`
	PerReplicaHourlyCost float64 `mapstructure:"per_replica_hourly_cost"`
	HoursPerMonth        float64 `mapstructure:"hours_per_month"`
	MemoryBaselineBytes  int64   `mapstructure:"memory_baseline_bytes"`
}

type VerticalConfig struct {
	CPULimitMultiplier    float64 `mapstructure:"cpu_limit_multiplier"`
	MemoryLimitMultiplier float64 `mapstructure:"memory_limit_multiplier"`
}

type QueueConfig struct {
	TargetQueueDepth float64 `mapstructure:"target_queue_depth"`
	MinWorkers       int     `mapstructure:"min_workers"`
	MaxWorkers       int     `mapstructure:"max_workers"`
}

type PredictorConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MinSamples          int           `mapstructure:"min_samples"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	RatePerReplica      float64       `mapstructure:"rate_per_replica"`
	ForecastHorizon     time.Duration `mapstructure:"forecast_horizon"`
	ModelArtifact       string        `mapstructure:"model_artifact"`
}

type AdvisorConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Lookback       time.Duration `mapstructure:"lookback"`
	IdleCPUPercent float64       `mapstructure:"idle_cpu_percent"`
	IdleRPSCeiling float64       `mapstructure:"idle_rps_ceiling"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type AuditConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
