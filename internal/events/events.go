// Package events defines the domain events exchanged between services
// and the envelope they travel in. Event types follow the format
// domain.action and double as broker routing keys.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Post events
const (
	EventTypePostCreated = "post.created"
	EventTypePostDeleted = "post.deleted"
)

// Envelope is the tagged wire format for every event. Kind selects the
// payload schema; consumers reject unknown kinds at decode time instead
// of propagating partial records downstream.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PostCreated is published by the posts service after a post row is
// committed. PostID is globally unique and stable across services; it
// is the join key for every per-service projection.
type PostCreated struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostDeleted carries the media IDs referenced by the deleted post so
// the media service can cascade-delete the external objects.
type PostDeleted struct {
	PostID   string   `json:"postId"`
	UserID   string   `json:"userId"`
	MediaIDs []string `json:"mediaIds"`
}

var ErrUnknownKind = errors.New("unknown event kind")

// Encode wraps a payload in an envelope and serializes it.
func Encode(id, kind string, occurredAt time.Time, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	env := Envelope{
		ID:         id,
		Kind:       kind,
		OccurredAt: occurredAt.UTC(),
		Payload:    raw,
	}
	return json.Marshal(env)
}

// Decode parses an envelope and validates its kind and payload schema.
// Malformed or unknown events fail here, before any handler runs.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks that the envelope carries a known kind and that its
// payload parses with the required fields present.
func (e Envelope) Validate() error {
	switch e.Kind {
	case EventTypePostCreated:
		_, err := e.PostCreated()
		return err
	case EventTypePostDeleted:
		_, err := e.PostDeleted()
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// PostCreated decodes the payload as a PostCreated event.
func (e Envelope) PostCreated() (PostCreated, error) {
	var p PostCreated
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return PostCreated{}, fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	if p.PostID == "" || p.UserID == "" {
		return PostCreated{}, fmt.Errorf("%s payload missing postId or userId", e.Kind)
	}
	return p, nil
}

// PostDeleted decodes the payload as a PostDeleted event.
func (e Envelope) PostDeleted() (PostDeleted, error) {
	var p PostDeleted
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return PostDeleted{}, fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	if p.PostID == "" {
		return PostDeleted{}, fmt.Errorf("%s payload missing postId", e.Kind)
	}
	return p, nil
}
