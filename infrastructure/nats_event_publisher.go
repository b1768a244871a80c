package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"broadcaster/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream holding every broadcaster event
const StreamName = "broadcaster_events"

const sourceService = "broadcaster"

// EventEnvelope wraps an event payload on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// MessagePublisher is the transport the event publisher writes to
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// PublishRecorder counts published messages
type PublishRecorder interface {
	RecordNATSMessagePublished(eventType string)
}

// NATSEventPublisher forwards committed events to NATS
type NATSEventPublisher struct {
	client        MessagePublisher
	subjectMapper *EventSubjectMapper
	recorder      PublishRecorder
	now           func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher. recorder may be nil.
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper, recorder PublishRecorder) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		recorder:      recorder,
		now:           time.Now,
	}
}

// Attach subscribes the publisher to every event type on the bus
func (p *NATSEventPublisher) Attach(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject := p.subjectMapper.MapEventToSubject(event)

	envelope, err := p.envelope(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, data, envelope.EventID); err != nil {
		// No stream bound to the subject yet
		if strings.Contains(err.Error(), "no response from stream") {
			log.WithField("subject", subject).Debug("No stream for subject, dropping event")
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if p.recorder != nil {
		p.recorder.RecordNATSMessagePublished(envelope.EventType)
	}

	log.WithFields(log.Fields{
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

func (p *NATSEventPublisher) envelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     p.now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}, nil
}

// EnsureEventStream creates the broadcaster_events stream covering every subject
func EnsureEventStream(client *NATSClient, subjectMapper *EventSubjectMapper) error {
	return client.ensureStream(StreamName, subjectMapper.GetAllSubjects())
}
