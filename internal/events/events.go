// Package events publishes the outcome of each plan submission so downstream
// consumers can react to deliveries without polling the CRM.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const TypePlanDelivery = "plan.delivery"

// Event describes one submission that passed validation.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	Email      string    `json:"email"`
	ContactID  string    `json:"contact_id,omitempty"`
	Created    bool      `json:"created"`
	Delivered  bool      `json:"delivered"`
	TagRemoved bool      `json:"tag_removed"`
	Step       string    `json:"step,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewPlanDelivery(requestID, email string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypePlanDelivery,
		RequestID:  requestID,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Publish must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher drops every event. Used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

func encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}
