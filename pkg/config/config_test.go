package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

func TestLoad_DefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "service-autoscaler", cfg.App.Name)
	assert.Equal(t, 5*time.Minute, cfg.Loop.Interval)
	assert.Equal(t, 168*time.Hour, cfg.Loop.MetricsRetention)
	assert.Equal(t, 60, cfg.Predictor.MinSamples)
	assert.Equal(t, 0.8, cfg.Predictor.ConfidenceThreshold)
	assert.Equal(t, 100.0, cfg.Predictor.RatePerReplica)
	assert.Equal(t, 0.12, cfg.Scaling.PerReplicaHourlyCost)
	assert.Equal(t, 730.0, cfg.Scaling.HoursPerMonth)
	assert.Equal(t, 2.0, cfg.Vertical.CPULimitMultiplier)
	assert.Equal(t, 1.5, cfg.Vertical.MemoryLimitMultiplier)
	assert.Equal(t, 100.0, cfg.Queue.TargetQueueDepth)
	assert.Len(t, cfg.Database.InstanceClasses, 5)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: my-autoscaler
  mode: production
  log_level: warn
loop:
  interval: 1m
services:
  - id: api-service
    namespace: default
    deployment: api
    db_instance_id: api-db
scaling:
  max_replicas: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "my-autoscaler", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Mode)
	assert.Equal(t, time.Minute, cfg.Loop.Interval)
	assert.Equal(t, 30, cfg.Scaling.MaxReplicas)

	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "api-service", cfg.Services[0].ID)
	assert.Equal(t, "api-db", cfg.Services[0].DBInstanceID)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.App.Mode = "staging"
	cfg.Loop.Interval = 0
	cfg.Scaling.MaxReplicas = 0
	cfg.Services = append(cfg.Services,
		models.MonitoredService{ID: "", Deployment: "api"},
		models.MonitoredService{ID: "dup", Deployment: "api"},
		models.MonitoredService{ID: "dup", Deployment: "worker"},
	)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.mode")
	assert.Contains(t, err.Error(), "loop.interval")
	assert.Contains(t, err.Error(), "max_replicas")
	assert.Contains(t, err.Error(), "duplicated")
}

func TestValidate_AuditRequiresConnectionDetails(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Audit.Enabled = true
	cfg.Audit.Host = ""
	cfg.Audit.Name = ""

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.host")
	assert.Contains(t, err.Error(), "audit.name")
}
