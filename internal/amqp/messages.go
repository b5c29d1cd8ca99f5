package amqp

import (
	"encoding/json"
	"time"

	"fluxo/internal/events"
	"fluxo/internal/store"
)

// LedgerEventMessage is the wire form of a committed change. It carries
// only ids; consumers fetch the current documents from the store.
type LedgerEventMessage struct {
	Collection store.Collection `json:"collection"`
	Action     events.Action    `json:"action"`
	IDs        []string         `json:"ids"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewLedgerEventMessage builds a message from a change, stamping it with
// the change time or now.
func NewLedgerEventMessage(c events.Change) *LedgerEventMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		Collection: c.Collection,
		Action:     c.Action,
		IDs:        c.IDs,
		Timestamp:  ts,
	}
}

// Change converts the message back to an events.Change.
func (m *LedgerEventMessage) Change() events.Change {
	return events.Change{Collection: m.Collection, Action: m.Action, IDs: m.IDs, At: m.Timestamp}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
