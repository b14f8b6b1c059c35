package metricsbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/atlasops/service-autoscaler/internal/logger"
)

// PrometheusBackend issues /api/v1/query_range calls against a Prometheus
// server. Each supported metric maps to a PromQL template with a single
// %s placeholder for the service identifier. If multiple series come back,
// values at the same timestamp are summed.
type PrometheusBackend struct {
	client      *http.Client
	endpoint    string
	stepSeconds int
	queries     map[string]string
}

type PrometheusConfig struct {
	Endpoint    string
	Timeout     time.Duration
	StepSeconds int
	// Queries overrides the default PromQL templates per metric name.
	Queries map[string]string
}

func defaultQueries() map[string]string {
	return map[string]string{
		"requests_per_second": `sum(rate(http_requests_total{service="%s"}[1m]))`,
		"response_time":       `histogram_quantile(0.5, sum(rate(http_request_duration_seconds_bucket{service="%s"}[1m])) by (le)) * 1000`,
		"queue_depth":         `sum(queue_depth{service="%s"})`,
		"error_rate":          `sum(rate(http_requests_total{service="%s",code=~"5.."}[1m])) / sum(rate(http_requests_total{service="%s"}[1m])) * 100`,
	}
}

func NewPrometheusBackend(cfg PrometheusConfig) *PrometheusBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	step := cfg.StepSeconds
	if step <= 0 {
		step = 60
	}

	queries := defaultQueries()
	for metric, q := range cfg.Queries {
		queries[metric] = q
	}

	return &PrometheusBackend{
		client:      &http.Client{Timeout: timeout},
		endpoint:    cfg.Endpoint,
		stepSeconds: step,
		queries:     queries,
	}
}

type rangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Values [][2]interface{} `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

func (b *PrometheusBackend) QueryRange(ctx context.Context, serviceID, metric string, window time.Duration) ([]Sample, error) {
	tmpl, ok := b.queries[metric]
	if !ok {
		return nil, fmt.Errorf("%w: no query configured for metric %q", ErrQueryFailed, metric)
	}
	query := expandQuery(tmpl, serviceID)

	now := time.Now().UTC().Truncate(time.Second)
	start := now.Add(-window)

	u, err := url.Parse(b.endpoint + "/api/v1/query_range")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %v", ErrQueryFailed, err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(now.Unix(), 10))
	q.Set("step", strconv.Itoa(b.stepSeconds))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithService(serviceID).Debugf("Querying %s for %s", b.endpoint, metric)

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrQueryFailed, resp.StatusCode)
	}

	var rr rangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if rr.Status != "success" {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidResponse, rr.Status)
	}

	return flattenResult(rr)
}

// expandQuery substitutes every %s in the template with the service id.
func expandQuery(tmpl, serviceID string) string {
	n := 0
	for i := 0; i+1 < len(tmpl); i++ {
		if tmpl[i] == '%' && tmpl[i+1] == 's' {
			n++
		}
	}
	args := make([]interface{}, n)
	for i := range args {
		args[i] = serviceID
	}
	return fmt.Sprintf(tmpl, args...)
}

func flattenResult(rr rangeResponse) ([]Sample, error) {
	byTime := make(map[int64]float64)

	for _, series := range rr.Data.Result {
		for _, pair := range series.Values {
			ts, ok := pair[0].(float64)
			if !ok {
				return nil, fmt.Errorf("%w: non-numeric timestamp", ErrInvalidResponse)
			}
			raw, ok := pair[1].(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string value", ErrInvalidResponse)
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
			byTime[int64(ts)] += value
		}
	}

	samples := make([]Sample, 0, len(byTime))
	for ts, value := range byTime {
		samples = append(samples, Sample{Timestamp: time.Unix(ts, 0).UTC(), Value: value})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	return samples, nil
}

func (b *PrometheusBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/-/healthy", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (b *PrometheusBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
