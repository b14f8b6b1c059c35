package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

func testServices() []models.MonitoredService {
	return []models.MonitoredService{
		{ID: "api-service", Namespace: "default", Deployment: "api"},
		{ID: "worker-service", Namespace: "default", Deployment: "worker"},
	}
}

func validPolicy() *models.ScalingPolicy {
	return &models.ScalingPolicy{
		Name:      "cpu-high",
		ServiceID: "api-service",
		Type:      models.PolicyTypeHorizontal,
		Enabled:   true,
		Priority:  10,
		Cooldown:  5 * time.Minute,
		Conditions: []models.ScalingCondition{
			{Metric: models.MetricCPUUtilization, Operator: models.OpGreater, Threshold: 70, Duration: 5 * time.Minute},
		},
		Actions: []models.ScalingAction{
			{Kind: models.ActionScaleUp, Value: 100, Unit: models.UnitPercent},
		},
	}
}

func TestStore_CreateAssignsID(t *testing.T) {
	store := NewStore(testServices())

	p := validPolicy()
	require.NoError(t, store.Create(p))
	assert.NotEmpty(t, p.ID)
	assert.Nil(t, p.LastExecuted)

	got, err := store.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cpu-high", got.Name)
}

func TestStore_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ScalingPolicy)
	}{
		{"missing name", func(p *models.ScalingPolicy) { p.Name = "" }},
		{"unknown type", func(p *models.ScalingPolicy) { p.Type = "diagonal" }},
		{"unknown service", func(p *models.ScalingPolicy) { p.ServiceID = "ghost-service" }},
		{"zero cooldown", func(p *models.ScalingPolicy) { p.Cooldown = 0 }},
		{"no conditions", func(p *models.ScalingPolicy) { p.Conditions = nil }},
		{"no actions", func(p *models.ScalingPolicy) { p.Actions = nil }},
		{"unknown metric", func(p *models.ScalingPolicy) { p.Conditions[0].Metric = "vibes" }},
		{"bad operator", func(p *models.ScalingPolicy) { p.Conditions[0].Operator = "!=" }},
		{"zero duration", func(p *models.ScalingPolicy) { p.Conditions[0].Duration = 0 }},
		{"bad action kind", func(p *models.ScalingPolicy) { p.Actions[0].Kind = "explode" }},
		{"bad action unit", func(p *models.ScalingPolicy) { p.Actions[0].Unit = "furlongs" }},
		{"max below min", func(p *models.ScalingPolicy) {
			min, max := 5, 2
			p.Actions[0].MinInstances = &min
			p.Actions[0].MaxInstances = &max
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(testServices())
			p := validPolicy()
			tt.mutate(p)
			err := store.Create(p)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestStore_UpdatePreservesCooldownState(t *testing.T) {
	store := NewStore(testServices())

	p := validPolicy()
	require.NoError(t, store.Create(p))

	fired := time.Now().Add(-time.Minute)
	store.MarkExecuted(p.ID, fired)

	edited := validPolicy()
	edited.ID = p.ID
	edited.Name = "cpu-high-v2"
	edited.LastExecuted = nil
	require.NoError(t, store.Update(edited))

	got, err := store.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cpu-high-v2", got.Name)
	require.NotNil(t, got.LastExecuted)
	assert.True(t, got.LastExecuted.Equal(fired))
	assert.NotNil(t, got.UpdatedAt)
}

func TestStore_UpdateUnknownPolicy(t *testing.T) {
	store := NewStore(testServices())
	p := validPolicy()
	p.ID = "missing"
	assert.ErrorIs(t, store.Update(p), ErrPolicyNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(testServices())

	p := validPolicy()
	require.NoError(t, store.Create(p))
	require.NoError(t, store.Delete(p.ID))

	_, err := store.Get(p.ID)
	assert.ErrorIs(t, err, ErrPolicyNotFound)
	assert.ErrorIs(t, store.Delete(p.ID), ErrPolicyNotFound)
}

func TestStore_ListOrdersByPriority(t *testing.T) {
	store := NewStore(testServices())

	low := validPolicy()
	low.Name = "low-priority"
	low.Priority = 100
	require.NoError(t, store.Create(low))

	high := validPolicy()
	high.Name = "high-priority"
	high.Priority = 1
	require.NoError(t, store.Create(high))

	other := validPolicy()
	other.Name = "worker-policy"
	other.ServiceID = "worker-service"
	other.Priority = 50
	require.NoError(t, store.Create(other))

	all := store.List("")
	require.Len(t, all, 3)
	assert.Equal(t, "high-priority", all[0].Name)
	assert.Equal(t, "worker-policy", all[1].Name)
	assert.Equal(t, "low-priority", all[2].Name)

	api := store.List("api-service")
	require.Len(t, api, 2)
	assert.Equal(t, "high-priority", api[0].Name)
}

func TestStore_EnabledFiltersDisabled(t *testing.T) {
	store := NewStore(testServices())

	on := validPolicy()
	require.NoError(t, store.Create(on))

	off := validPolicy()
	off.Name = "disabled-policy"
	off.Enabled = false
	require.NoError(t, store.Create(off))

	enabled := store.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "cpu-high", enabled[0].Name)
}
