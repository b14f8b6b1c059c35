package events

import (
	"context"

	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/pkg/database"
	"github.com/atlasops/service-autoscaler/pkg/database/queries"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// AuditSink consumes the event stream, writes every event to the
// structured log, and persists executed scaling events to Postgres when a
// database is configured. It is the default implementation of the external
// observability pipeline the loop publishes into.
type AuditSink struct {
	db        *database.DB
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewAuditSink(db *database.DB, eventChan <-chan *models.Event) *AuditSink {
	ctx, cancel := context.WithCancel(context.Background())
	return &AuditSink{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (s *AuditSink) Start() {
	go s.run()
}

func (s *AuditSink) Stop() {
	s.cancel()
	<-s.done
}

func (s *AuditSink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventChan:
			if !ok {
				return
			}
			s.processEvent(event)
		}
	}
}

func (s *AuditSink) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"service_id": event.ServiceID,
		"severity":   event.Severity,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if event.Type == models.EventTypeScalingExecuted {
		s.persistScalingEvent(event)
	}
}

func (s *AuditSink) persistScalingEvent(event *models.Event) {
	if s.db == nil {
		return
	}

	scalingEvent, ok := event.Data.(*models.ScalingEvent)
	if !ok {
		return
	}

	repo := queries.NewScalingEventRepository(s.db.DB)
	if err := repo.Insert(s.ctx, scalingEvent); err != nil {
		logger.Errorf("Failed to persist scaling event: %v", err)
	}
}
