package outbox

import (
	"encoding/json"
	"time"
)

const (
	AggregateCalendarEvent = "calendar_event"

	EventCalendarEventCreated = "calendar.event.created.v1"
	EventCalendarEventDeleted = "calendar.event.deleted.v1"
)

// Event is the envelope written to the outbox table. The Kafka topic is EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type CalendarEventPayload struct {
	CalendarID string     `json:"calendar_id"`
	EventID    string     `json:"event_id"`
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func CalendarEventCreated(p CalendarEventPayload) (Event, error) {
	return newCalendarEvent(EventCalendarEventCreated, p)
}

func CalendarEventDeleted(p CalendarEventPayload) (Event, error) {
	return newCalendarEvent(EventCalendarEventDeleted, p)
}

func newCalendarEvent(eventType string, p CalendarEventPayload) (Event, error) {
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateCalendarEvent,
		AggregateID:   p.EventID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
