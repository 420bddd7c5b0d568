package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventTypeTTS = "tts"
)

// Event is the envelope a native plugin publishes on nativebridge.events.<plugin>.
// Seq starts at 1 and increases by one per event from the same plugin
// instance, so receivers can tell a gap from a quiet period.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent creates an Event with a generated ID and current timestamp.
func NewEvent(eventType, source string, seq uint64, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}
