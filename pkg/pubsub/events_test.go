package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/hackbot/pkg/enums"
)

type stubResult struct {
	id  string
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	return r.id, r.err
}

type stubPublisher struct {
	messages []*pubsub.Message
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{id: "server-1", err: p.err}
}

func TestEventPublisherWrapsEnvelope(t *testing.T) {
	stub := &stubPublisher{}
	pub := newEventPublisher(stub)
	pub.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	err := pub.Publish(context.Background(), enums.RegistrationEventApproved, RegistrationEvent{
		UserID:      "user-1",
		TeamName:    "Phoenix",
		Status:      "approved",
		ModeratorID: "mod-1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(stub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.messages))
	}
	msg := stub.messages[0]
	if msg.Attributes["event_type"] != "registration.approved" || msg.Attributes["user_id"] != "user-1" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || !envelope.OccurredAt.Equal(pub.now()) {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	var payload RegistrationEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.TeamName != "Phoenix" || payload.ModeratorID != "mod-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEventPublisherSurfacesPublishErrors(t *testing.T) {
	stub := &stubPublisher{err: errors.New("topic deleted")}
	pub := newEventPublisher(stub)

	if err := pub.Publish(context.Background(), enums.RegistrationEventRejected, RegistrationEvent{UserID: "u"}); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestEventPublisherRejectsUnknownType(t *testing.T) {
	pub := newEventPublisher(&stubPublisher{})
	if err := pub.Publish(context.Background(), "registration.exploded", RegistrationEvent{UserID: "u"}); err == nil {
		t.Fatalf("expected invalid type error")
	}
}

func TestNewEventPublisherRequiresHandle(t *testing.T) {
	if _, err := NewEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil publisher")
	}
}

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "hack-2026"}
	if got := c.topicResourceName("registrations"); got != "projects/hack-2026/topics/registrations" {
		t.Fatalf("unexpected topic name %s", got)
	}
	if got := c.topicResourceName("projects/other/topics/x"); got != "projects/other/topics/x" {
		t.Fatalf("full names should pass through, got %s", got)
	}
	if got := (&Client{}).topicResourceName("x"); got != "" {
		t.Fatalf("missing project should yield empty name, got %s", got)
	}
}
