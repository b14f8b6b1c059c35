package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, errors.New("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, errors.New("app.log_level must be one of: debug, info, warn, error"))
	}

	// Loop validation
	if c.Loop.Interval <= 0 {
		errs = append(errs, errors.New("loop.interval must be positive"))
	}
	if c.Loop.MetricsRetention <= 0 {
		errs = append(errs, errors.New("loop.metrics_retention must be positive"))
	}

	// Monitored services
	seen := make(map[string]bool)
	for i, svc := range c.Services {
		if svc.ID == "" {
			errs = append(errs, fmt.Errorf("services[%d].id is required", i))
			continue
		}
		if seen[svc.ID] {
			errs = append(errs, fmt.Errorf("services[%d].id %q is duplicated", i, svc.ID))
		}
		seen[svc.ID] = true
		if svc.Deployment == "" {
			errs = append(errs, fmt.Errorf("services[%d].deployment is required", i))
		}
	}

	// External endpoints
	if c.Orchestrator.Endpoint == "" {
		errs = append(errs, errors.New("orchestrator.endpoint is required"))
	}
	if c.Orchestrator.Timeout <= 0 {
		errs = append(errs, errors.New("orchestrator.timeout must be positive"))
	}
	if c.MetricsBackend.Endpoint == "" {
		errs = append(errs, errors.New("metrics_backend.endpoint is required"))
	}
	if c.MetricsBackend.Timeout <= 0 {
		errs = append(errs, errors.New("metrics_backend.timeout must be positive"))
	}
	if len(c.Database.InstanceClasses) == 0 {
		errs = append(errs, errors.New("database.instance_classes must not be empty"))
	}

	// Scaling bounds
	if c.Scaling.MinReplicas < 0 {
		errs = append(errs, errors.New("scaling.min_replicas must not be negative"))
	}
	if c.Scaling.MaxReplicas <= 0 {
		errs = append(errs, errors.New("scaling.max_replicas must be positive"))
	}
	if c.Scaling.MaxReplicas < c.Scaling.MinReplicas {
		errs = append(errs, errors.New("scaling.max_replicas must be >= scaling.min_replicas"))
	}
	if c.Scaling.MemoryBaselineBytes <= 0 {
		errs = append(errs, errors.New("scaling.memory_baseline_bytes must be positive"))
	}

	// Vertical multipliers
	if c.Vertical.CPULimitMultiplier < 1 {
		errs = append(errs, errors.New("vertical.cpu_limit_multiplier must be >= 1"))
	}
	if c.Vertical.MemoryLimitMultiplier < 1 {
		errs = append(errs, errors.New("vertical.memory_limit_multiplier must be >= 1"))
	}

	// Queue sizing
	if c.Queue.TargetQueueDepth <= 0 {
		errs = append(errs, errors.New("queue.target_queue_depth must be positive"))
	}
	if c.Queue.MinWorkers < 1 {
		errs = append(errs, errors.New("queue.min_workers must be at least 1"))
	}
	if c.Queue.MaxWorkers < c.Queue.MinWorkers {
		errs = append(errs, errors.New("queue.max_workers must be >= queue.min_workers"))
	}

	// Predictor
	if c.Predictor.MinSamples <= 0 {
		errs = append(errs, errors.New("predictor.min_samples must be positive"))
	}
	if c.Predictor.ConfidenceThreshold < 0 || c.Predictor.ConfidenceThreshold > 1 {
		errs = append(errs, errors.New("predictor.confidence_threshold must be between 0 and 1"))
	}
	if c.Predictor.RatePerReplica <= 0 {
		errs = append(errs, errors.New("predictor.rate_per_replica must be positive"))
	}

	// Audit sink
	if c.Audit.Enabled {
		if c.Audit.Host == "" {
			errs = append(errs, errors.New("audit.host is required when audit is enabled"))
		}
		if c.Audit.Port <= 0 || c.Audit.Port > 65535 {
			errs = append(errs, errors.New("audit.port must be between 1 and 65535"))
		}
		if c.Audit.Name == "" {
			errs = append(errs, errors.New("audit.name is required when audit is enabled"))
		}
	}

	// Telemetry
	if c.Telemetry.Enabled && (c.Telemetry.Port <= 0 || c.Telemetry.Port > 65535) {
		errs = append(errs, errors.New("telemetry.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
