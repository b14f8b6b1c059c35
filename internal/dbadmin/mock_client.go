package dbadmin

import (
	"context"
	"sync"
)

// MockClient is an in-memory managed-database control plane for tests.
type MockClient struct {
	mu      sync.Mutex
	classes map[string]string
	fail    error

	ModifyCalls []ModifyCall
}

type ModifyCall struct {
	InstanceID string
	NewClass   string
}

func NewMockClient() *MockClient {
	return &MockClient{classes: make(map[string]string)}
}

func (m *MockClient) SetInstanceClass(instanceID, class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[instanceID] = class
}

func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MockClient) DescribeInstance(ctx context.Context, instanceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return "", m.fail
	}
	class, ok := m.classes[instanceID]
	if !ok {
		return "", ErrInstanceNotFound
	}
	return class, nil
}

func (m *MockClient) ModifyInstance(ctx context.Context, instanceID, newClass string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.classes[instanceID]; !ok {
		return ErrInstanceNotFound
	}
	m.classes[instanceID] = newClass
	m.ModifyCalls = append(m.ModifyCalls, ModifyCall{InstanceID: instanceID, NewClass: newClass})
	return nil
}

func (m *MockClient) Close() error {
	return nil
}
