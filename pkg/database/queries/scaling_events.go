package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

type ScalingEventRepository struct {
	db *sql.DB
}

func NewScalingEventRepository(db *sql.DB) *ScalingEventRepository {
	return &ScalingEventRepository{db: db}
}

func (r *ScalingEventRepository) Insert(ctx context.Context, e *models.ScalingEvent) error {
	query := `
		INSERT INTO scaling_events
			(id, timestamp, service_id, policy_id, action, reason, previous_value, new_value, trigger_kind, cost_impact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Timestamp,
		e.ServiceID,
		e.PolicyID,
		e.Action,
		e.Reason,
		e.PreviousValue,
		e.NewValue,
		e.Trigger,
		e.CostImpact,
	)
	return err
}

func (r *ScalingEventRepository) GetByService(ctx context.Context, serviceID string, from, to time.Time, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, timestamp, service_id, policy_id, action, reason, previous_value, new_value, trigger_kind, cost_impact
		FROM scaling_events
		WHERE service_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, serviceID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *ScalingEventRepository) GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, timestamp, service_id, policy_id, action, reason, previous_value, new_value, trigger_kind, cost_impact
		FROM scaling_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.ScalingEvent, error) {
	var events []models.ScalingEvent
	for rows.Next() {
		var e models.ScalingEvent
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.ServiceID, &e.PolicyID, &e.Action,
			&e.Reason, &e.PreviousValue, &e.NewValue, &e.Trigger, &e.CostImpact,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
