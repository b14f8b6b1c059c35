package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// HTTPClient talks to the orchestration layer's REST gateway.
type HTTPClient struct {
	client   *http.Client
	endpoint string
}

type HTTPClientConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
	}
}

type deploymentResponse struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	CurrentReplicas int    `json:"current_replicas"`
	DesiredReplicas int    `json:"desired_replicas"`
	Resources       struct {
		RequestCPUMillicores int64 `json:"request_cpu_millicores"`
		RequestMemoryBytes   int64 `json:"request_memory_bytes"`
		LimitCPUMillicores   int64 `json:"limit_cpu_millicores"`
		LimitMemoryBytes     int64 `json:"limit_memory_bytes"`
		UsageCPUMillicores   int64 `json:"usage_cpu_millicores"`
		UsageMemoryBytes     int64 `json:"usage_memory_bytes"`
	} `json:"resources"`
}

func (c *HTTPClient) GetDeployment(ctx context.Context, svc models.MonitoredService) (*models.Deployment, error) {
	url := fmt.Sprintf("%s/namespaces/%s/deployments/%s", c.endpoint, svc.Namespace, svc.Deployment)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithService(svc.ID).Debugf("Fetching deployment from %s", url)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDeploymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrRequestFailed, err)
	}

	var dr deploymentResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &models.Deployment{
		ServiceID:       svc.ID,
		Namespace:       svc.Namespace,
		Name:            dr.Name,
		CurrentReplicas: dr.CurrentReplicas,
		DesiredReplicas: dr.DesiredReplicas,
		Resources: models.ContainerResources{
			RequestCPUMillicores: dr.Resources.RequestCPUMillicores,
			RequestMemoryBytes:   dr.Resources.RequestMemoryBytes,
			LimitCPUMillicores:   dr.Resources.LimitCPUMillicores,
			LimitMemoryBytes:     dr.Resources.LimitMemoryBytes,
			UsageCPUMillicores:   dr.Resources.UsageCPUMillicores,
			UsageMemoryBytes:     dr.Resources.UsageMemoryBytes,
		},
	}, nil
}

func (c *HTTPClient) SetReplicas(ctx context.Context, svc models.MonitoredService, replicas int) error {
	url := fmt.Sprintf("%s/namespaces/%s/deployments/%s/scale", c.endpoint, svc.Namespace, svc.Deployment)

	payload, err := json.Marshal(map[string]int{"replicas": replicas})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	return c.patch(ctx, svc, url, payload)
}

func (c *HTTPClient) SetContainerResources(ctx context.Context, svc models.MonitoredService, resources models.ContainerResources) error {
	url := fmt.Sprintf("%s/namespaces/%s/deployments/%s/resources", c.endpoint, svc.Namespace, svc.Deployment)

	payload, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	return c.patch(ctx, svc, url, payload)
}

func (c *HTTPClient) patch(ctx context.Context, svc models.MonitoredService, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrDeploymentNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: unexpected status code %d", ErrRequestFailed, resp.StatusCode)
	}

	logger.WithService(svc.ID).Debugf("Patched %s", url)
	return nil
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
