package models

import (
	"math"
	"time"
)

type PolicyType string

const (
	PolicyTypeHorizontal PolicyType = "horizontal"
	PolicyTypeVertical   PolicyType = "vertical"
	PolicyTypeDatabase   PolicyType = "database"
	PolicyTypeQueue      PolicyType = "queue"
)

func (t PolicyType) Valid() bool {
	switch t {
	case PolicyTypeHorizontal, PolicyTypeVertical, PolicyTypeDatabase, PolicyTypeQueue:
		return true
	}
	return false
}

type ActionKind string

const (
	ActionScaleUp         ActionKind = "scale_up"
	ActionScaleDown       ActionKind = "scale_down"
	ActionScaleTo         ActionKind = "scale_to"
	ActionAdjustResources ActionKind = "adjust_resources"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionScaleUp, ActionScaleDown, ActionScaleTo, ActionAdjustResources:
		return true
	}
	return false
}

type ActionUnit string

const (
	UnitPercent  ActionUnit = "percent"
	UnitAbsolute ActionUnit = "absolute"
	UnitCPU      ActionUnit = "cpu"
	UnitMemory   ActionUnit = "memory"
)

func (u ActionUnit) Valid() bool {
	switch u {
	case UnitPercent, UnitAbsolute, UnitCPU, UnitMemory:
		return true
	}
	return false
}

type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return true
	}
	return false
}

const equalityEpsilon = 1e-9

// Compare evaluates value against threshold under this operator.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return math.Abs(value-threshold) < equalityEpsilon
	default:
		return false
	}
}

// ScalingCondition is one threshold check within a policy. The condition is
// met only when every sample inside the trailing Duration window satisfies
// the comparison; an empty window never satisfies it.
type ScalingCondition struct {
	Metric    string        `json:"metric"`
	Operator  Operator      `json:"operator"`
	Threshold float64       `json:"threshold"`
	Duration  time.Duration `json:"duration"`
}

// ScalingAction is one capacity change issued when a policy fires.
type ScalingAction struct {
	Kind         ActionKind `json:"kind"`
	Value        float64    `json:"value"`
	Unit         ActionUnit `json:"unit"`
	MinInstances *int       `json:"min_instances,omitempty"`
	MaxInstances *int       `json:"max_instances,omitempty"`
}

// ScalingPolicy is a user-configured rule evaluated every tick. Policies
// are mutated only through the CRUD surface; LastExecuted is updated by the
// engine alone, immediately after a successful fire.
type ScalingPolicy struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ServiceID    string             `json:"service_id"`
	Type         PolicyType         `json:"type"`
	Enabled      bool               `json:"enabled"`
	Priority     int                `json:"priority"`
	Conditions   []ScalingCondition `json:"conditions"`
	Actions      []ScalingAction    `json:"actions"`
	Cooldown     time.Duration      `json:"cooldown"`
	LastExecuted *time.Time         `json:"last_executed,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    *time.Time         `json:"updated_at,omitempty"`
}

// InCooldown reports whether the policy fired within its cooldown window.
func (p *ScalingPolicy) InCooldown(now time.Time) bool {
	if p.LastExecuted == nil {
		return false
	}
	return now.Sub(*p.LastExecuted) < p.Cooldown
}
