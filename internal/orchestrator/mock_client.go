package orchestrator

import (
	"context"
	"sync"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

// MockClient is an in-memory orchestrator used by tests and local runs.
type MockClient struct {
	mu          sync.Mutex
	deployments map[string]*models.Deployment
	failures    map[string]error

	ReplicaCalls  []ReplicaCall
	ResourceCalls []ResourceCall
}

type ReplicaCall struct {
	ServiceID string
	Replicas  int
}

type ResourceCall struct {
	ServiceID string
	Resources models.ContainerResources
}

func NewMockClient() *MockClient {
	return &MockClient{
		deployments: make(map[string]*models.Deployment),
		failures:    make(map[string]error),
	}
}

func (m *MockClient) SetDeployment(d *models.Deployment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployments[d.ServiceID] = d
}

// FailService makes all calls for the given service return err.
func (m *MockClient) FailService(serviceID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, serviceID)
		return
	}
	m.failures[serviceID] = err
}

func (m *MockClient) GetDeployment(ctx context.Context, svc models.MonitoredService) (*models.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[svc.ID]; err != nil {
		return nil, err
	}

	d, ok := m.deployments[svc.ID]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *MockClient) SetReplicas(ctx context.Context, svc models.MonitoredService, replicas int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[svc.ID]; err != nil {
		return err
	}

	d, ok := m.deployments[svc.ID]
	if !ok {
		return ErrDeploymentNotFound
	}

	d.DesiredReplicas = replicas
	d.CurrentReplicas = replicas
	m.ReplicaCalls = append(m.ReplicaCalls, ReplicaCall{ServiceID: svc.ID, Replicas: replicas})
	return nil
}

func (m *MockClient) SetContainerResources(ctx context.Context, svc models.MonitoredService, resources models.ContainerResources) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[svc.ID]; err != nil {
		return err
	}

	d, ok := m.deployments[svc.ID]
	if !ok {
		return ErrDeploymentNotFound
	}

	d.Resources = resources
	m.ResourceCalls = append(m.ResourceCalls, ResourceCall{ServiceID: svc.ID, Resources: resources})
	return nil
}

func (m *MockClient) Close() error {
	return nil
}
