package policy

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

var (
	ErrPolicyNotFound = errors.New("policy not found")
	ErrInvalidPolicy  = errors.New("invalid policy")
)

// Store holds all configured scaling policies in memory, keyed by id.
// It is not safe for concurrent use by itself; the control loop owns it
// and serializes access (CRUD calls go through the loop's lock).
type Store struct {
	policies map[string]*models.ScalingPolicy
	services map[string]bool
}

// NewStore creates a policy store that only accepts policies targeting one
// of the known monitored services.
func NewStore(services []models.MonitoredService) *Store {
	known := make(map[string]bool, len(services))
	for _, svc := range services {
		known[svc.ID] = true
	}
	return &Store{
		policies: make(map[string]*models.ScalingPolicy),
		services: known,
	}
}

// Create validates and stores a new policy, assigning its id.
func (s *Store) Create(p *models.ScalingPolicy) error {
	if err := s.validate(p); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = models.NewUUID()
	}
	if _, exists := s.policies[p.ID]; exists {
		return fmt.Errorf("%w: policy %s already exists", ErrInvalidPolicy, p.ID)
	}

	p.CreatedAt = time.Now()
	p.LastExecuted = nil
	s.policies[p.ID] = p
	return nil
}

// Update replaces a policy's configuration. LastExecuted is preserved so a
// configuration edit cannot defeat a running cooldown.
func (s *Store) Update(p *models.ScalingPolicy) error {
	existing, ok := s.policies[p.ID]
	if !ok {
		return ErrPolicyNotFound
	}
	if err := s.validate(p); err != nil {
		return err
	}

	p.CreatedAt = existing.CreatedAt
	p.LastExecuted = existing.LastExecuted
	now := time.Now()
	p.UpdatedAt = &now
	s.policies[p.ID] = p
	return nil
}

func (s *Store) Delete(id string) error {
	if _, ok := s.policies[id]; !ok {
		return ErrPolicyNotFound
	}
	delete(s.policies, id)
	return nil
}

func (s *Store) Get(id string) (*models.ScalingPolicy, error) {
	p, ok := s.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	copied := *p
	return &copied, nil
}

// List returns all policies, optionally filtered by service, sorted by
// ascending priority.
func (s *Store) List(serviceID string) []*models.ScalingPolicy {
	out := make([]*models.ScalingPolicy, 0, len(s.policies))
	for _, p := range s.policies {
		if serviceID != "" && p.ServiceID != serviceID {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Enabled returns enabled policies in evaluation order.
func (s *Store) Enabled() []*models.ScalingPolicy {
	all := s.List("")
	out := all[:0]
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// MarkExecuted stamps the policy's cooldown timer. Called by the engine
// only, under the loop's lock.
func (s *Store) MarkExecuted(id string, at time.Time) {
	if p, ok := s.policies[id]; ok {
		stamped := at
		p.LastExecuted = &stamped
	}
}

func (s *Store) validate(p *models.ScalingPolicy) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown policy type %q", ErrInvalidPolicy, p.Type)
	}
	if !s.services[p.ServiceID] {
		return fmt.Errorf("%w: unknown service %q", ErrInvalidPolicy, p.ServiceID)
	}
	if p.Cooldown <= 0 {
		return fmt.Errorf("%w: cooldown must be positive", ErrInvalidPolicy)
	}
	if len(p.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidPolicy)
	}
	if len(p.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidPolicy)
	}

	for i, c := range p.Conditions {
		if !models.KnownMetric(c.Metric) {
			return fmt.Errorf("%w: conditions[%d] references unknown metric %q", ErrInvalidPolicy, i, c.Metric)
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("%w: conditions[%d] has invalid operator %q", ErrInvalidPolicy, i, c.Operator)
		}
		if c.Duration <= 0 {
			return fmt.Errorf("%w: conditions[%d] duration must be positive", ErrInvalidPolicy, i)
		}
	}

	for i, a := range p.Actions {
		if !a.Kind.Valid() {
			return fmt.Errorf("%w: actions[%d] has invalid kind %q", ErrInvalidPolicy, i, a.Kind)
		}
		if !a.Unit.Valid() {
			return fmt.Errorf("%w: actions[%d] has invalid unit %q", ErrInvalidPolicy, i, a.Unit)
		}
		if a.MinInstances != nil && a.MaxInstances != nil && *a.MaxInstances < *a.MinInstances {
			return fmt.Errorf("%w: actions[%d] max_instances must be >= min_instances", ErrInvalidPolicy, i)
		}
	}

	return nil
}
