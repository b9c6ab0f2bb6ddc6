package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schoolattendance/internal/queue"
)

// Lifecycle event types.
const (
	EventCheckInCreated  = "checkin.created"
	EventCheckInApproved = "checkin.approved"
	EventCheckInRejected = "checkin.rejected"
	EventCheckInDeleted  = "checkin.deleted"
)

// Event describes a committed change to a check-in. Status is the check-in's status after
// the change, or for deletions the status it had when it was removed.
type Event struct {
	Type      string    `json:"type"`
	CheckInID string    `json:"checkInId"`
	StudentID string    `json:"studentId"`
	Status    Status    `json:"status"`
	Date      string    `json:"date"`
	At        time.Time `json:"at"`
}

func eventFor(typ string, c CheckIn, at time.Time) Event {
	return Event{
		Type:      typ,
		CheckInID: c.ID,
		StudentID: c.StudentID,
		Status:    c.Status,
		Date:      c.Date,
		At:        at,
	}
}

// EventPublisher receives lifecycle events after the store accepted a write.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, Event) error { return nil }

// QueuePublisher forwards events to a queue as JSON messages.
type QueuePublisher struct {
	q queue.Queue
}

// NewQueuePublisher creates a publisher on top of q.
func NewQueuePublisher(q queue.Queue) *QueuePublisher {
	return &QueuePublisher{q: q}
}

// Publish implements EventPublisher.
func (p *QueuePublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, queue.Message{Type: evt.Type, Body: body})
}

// DecodeEvent turns a queue message back into an Event.
func DecodeEvent(msg queue.Message) (Event, error) {
	var evt Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return Event{}, fmt.Errorf("decode %s event: %w", msg.Type, err)
	}
	if evt.Type == "" {
		evt.Type = msg.Type
	}
	switch evt.Type {
	case EventCheckInCreated, EventCheckInApproved, EventCheckInRejected, EventCheckInDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", evt.Type)
	}
	if evt.Date == "" {
		return Event{}, fmt.Errorf("%s event %s has no date", evt.Type, evt.CheckInID)
	}
	return evt, nil
}
