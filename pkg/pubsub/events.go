package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/hackbot/pkg/enums"
	"github.com/google/uuid"
)

const defaultPublishTimeout = 10 * time.Second

// Envelope is the stable JSON body of every registration event.
type Envelope struct {
	Version    int                         `json:"version"`
	EventID    string                      `json:"eventId"`
	Type       enums.RegistrationEventType `json:"type"`
	OccurredAt time.Time                   `json:"occurredAt"`
	Data       json.RawMessage             `json:"data"`
}

// RegistrationEvent is the payload carried by every lifecycle event.
type RegistrationEvent struct {
	RegistrationID string `json:"registrationId,omitempty"`
	UserID         string `json:"userId"`
	TeamName       string `json:"teamName,omitempty"`
	Status         string `json:"status,omitempty"`
	ModeratorID    string `json:"moderatorId,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// EventPublisher publishes registration lifecycle events to one topic.
type EventPublisher struct {
	pub     publisher
	now     func() time.Time
	timeout time.Duration
}

// NewEventPublisher wraps a Pub/Sub publisher handle.
func NewEventPublisher(p *pubsub.Publisher) (*EventPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newEventPublisher(&gcpPublisher{Publisher: p}), nil
}

func newEventPublisher(p publisher) *EventPublisher {
	return &EventPublisher{
		pub:     p,
		now:     time.Now,
		timeout: defaultPublishTimeout,
	}
}

// Publish wraps event in an Envelope and blocks until the server acknowledges it.
func (p *EventPublisher) Publish(ctx context.Context, eventType enums.RegistrationEventType, event RegistrationEvent) error {
	if !eventType.IsValid() {
		return fmt.Errorf("invalid event type %q", eventType)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":    envelope.EventID,
			"event_type":  eventType.String(),
			"user_id":     event.UserID,
			"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil for %s", eventType)
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
