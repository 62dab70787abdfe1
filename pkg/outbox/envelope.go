package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on envelopes whose producer did not pick one.
const SchemaVersion = 1

// ErrEmptyData marks an envelope that carries no domain payload.
var ErrEmptyData = errors.New("envelope has no data")

// ActorRef names the principal whose action produced an event.
type ActorRef struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// forwarded to the broker unchanged.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Seal wraps data in a fresh envelope with a new event id.
func Seal(data any, version int, actor *ActorRef, at time.Time) (PayloadEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode event data: %w", err)
	}
	if version <= 0 {
		version = SchemaVersion
	}
	if at.IsZero() {
		at = time.Now()
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: at.UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}

// Open decodes a stored payload and rejects envelopes without data.
func Open(payload []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, ErrEmptyData
	}
	return env, nil
}
