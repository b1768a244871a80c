package infrastructure

import (
	"fmt"

	"broadcaster/events"
)

// SubjectPrefix scopes every subject the broadcaster publishes
const SubjectPrefix = "broadcaster"

// EventSubjectMapper maps ledger events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.subjectFor(event.Type())
}

func (m *EventSubjectMapper) subjectFor(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChange:
		return SubjectPrefix + ".ledger.balance_changed"
	case events.EventTypeAccountCreated:
		return SubjectPrefix + ".accounts.created"
	case events.EventTypeBroadcastRecorded:
		return SubjectPrefix + ".broadcasts.recorded"
	case events.EventTypePaymentExpected:
		return SubjectPrefix + ".payments.expected"
	case events.EventTypePaymentConfirmed:
		return SubjectPrefix + ".payments.confirmed"
	default:
		return fmt.Sprintf("%s.unknown.%s", SubjectPrefix, eventType)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	types := events.AllEventTypes()
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, m.subjectFor(t))
	}
	return subjects
}
