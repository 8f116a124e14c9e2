package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"farmledger/domain/events"
	"farmledger/domain/interfaces"
	"farmledger/infrastructure/observability"
)

// EventEnvelope is the wire format for every published domain event.
// Consumers dispatch on EventType and decode Payload accordingly.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// natsEventPublisher publishes domain events to NATS JetStream.
type natsEventPublisher struct {
	client *NATSClient
	mapper *EventSubjectMapper
}

// NewNATSEventPublisher creates an event publisher backed by NATS.
func NewNATSEventPublisher(client *NATSClient) interfaces.EventPublisher {
	return &natsEventPublisher{
		client: client,
		mapper: NewEventSubjectMapper(),
	}
}

func (p *natsEventPublisher) Publish(event events.Event) error {
	subject, err := p.mapper.GetSubject(event)
	if err != nil {
		return fmt.Errorf("failed to map event to subject: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     event.Type(),
		Timestamp:     time.Now().UTC(),
		SourceService: "farmledger",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(context.Background(), subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if metrics := observability.GetMetrics(); metrics != nil {
		metrics.RecordNATSMessagePublished(event.Type())
	}

	log.WithFields(log.Fields{
		"event_type": event.Type(),
		"event_id":   envelope.EventID,
		"subject":    subject,
	}).Debug("Published domain event")
	return nil
}
