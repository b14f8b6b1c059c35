package orchestrator

import (
	"context"
	"errors"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

var (
	ErrRequestFailed      = errors.New("orchestrator request failed")
	ErrTimeout            = errors.New("orchestrator request timeout")
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrInvalidResponse    = errors.New("invalid response from orchestrator")
)

// Client is the contract against the orchestration layer. Implementations
// must honor context deadlines; the control loop never retries within a
// tick.
type Client interface {
	// GetDeployment returns current replica counts and container resources
	// for a monitored service.
	GetDeployment(ctx context.Context, svc models.MonitoredService) (*models.Deployment, error)

	// SetReplicas patches the deployment's desired replica count.
	SetReplicas(ctx context.Context, svc models.MonitoredService, replicas int) error

	// SetContainerResources updates per-container CPU/memory requests and
	// limits (millicores, bytes) with a full deployment update.
	SetContainerResources(ctx context.Context, svc models.MonitoredService, resources models.ContainerResources) error

	// Close releases any resources held by the client.
	Close() error
}
