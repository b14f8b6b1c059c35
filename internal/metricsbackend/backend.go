package metricsbackend

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueryFailed     = errors.New("metrics backend query failed")
	ErrTimeout         = errors.New("metrics backend query timeout")
	ErrInvalidResponse = errors.New("invalid response from metrics backend")
)

// Sample is one time-stamped observation returned by a range query.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Backend fetches raw load metrics for a service over a trailing window.
// Implementations must respect context deadlines and never panic.
type Backend interface {
	// QueryRange returns samples for the named metric over the last window.
	QueryRange(ctx context.Context, serviceID, metric string, window time.Duration) ([]Sample, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
