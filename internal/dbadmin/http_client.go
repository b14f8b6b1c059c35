package dbadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atlasops/service-autoscaler/internal/logger"
)

// HTTPClient talks to a managed-database control plane over REST.
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
		timeout = 15 * time.Second
	}

	return &HTTPClient{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
	}
}

type instanceResponse struct {
	InstanceID    string `json:"instance_id"`
	InstanceClass string `json:"instance_class"`
	Status        string `json:"status"`
}

func (c *HTTPClient) DescribeInstance(ctx context.Context, instanceID string) (string, error) {
	url := fmt.Sprintf("%s/instances/%s", c.endpoint, instanceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrInstanceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code %d", ErrRequestFailed, resp.StatusCode)
	}

	var ir instanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	return ir.InstanceClass, nil
}

func (c *HTTPClient) ModifyInstance(ctx context.Context, instanceID, newClass string) error {
	url := fmt.Sprintf("%s/instances/%s", c.endpoint, instanceID)

	payload, err := json.Marshal(map[string]string{"instance_class": newClass})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
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
		return ErrInstanceNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: unexpected status code %d", ErrRequestFailed, resp.StatusCode)
	}

	logger.WithField("instance_id", instanceID).Infof("Instance class change requested: %s", newClass)
	return nil
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
