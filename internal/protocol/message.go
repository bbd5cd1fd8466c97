package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is a decoded frame.
type Message struct {
	Code    int             `json:"code"`
	Payload json.RawMessage `json:"data,omitempty"`
	Info    *string         `json:"info,omitempty"`
}

// NewMessage builds a message with v marshaled as the payload.
// A nil v leaves the payload empty.
func NewMessage(code int, v any) (Message, error) {
	msg := Message{Code: code}
	if v == nil {
		return msg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload for code %d: %w", code, err)
	}
	msg.Payload = data
	return msg, nil
}

// WithInfo returns a copy of m carrying the auxiliary info string.
func (m Message) WithInfo(info string) Message {
	m.Info = &info
	return m
}

// DecodePayload unmarshals the payload into v. Servers that double-encode
// send the value as a JSON string; that string is decoded in turn.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("code %d: empty payload", m.Code)
	}
	err := json.Unmarshal(m.Payload, v)
	if err == nil {
		return nil
	}

	var inner string
	if json.Unmarshal(m.Payload, &inner) == nil && inner != "" {
		if err2 := json.Unmarshal([]byte(inner), v); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("code %d: decode payload: %w", m.Code, err)
}

// Text returns the payload as a string. A JSON string payload is unquoted,
// anything else is returned verbatim.
func (m Message) Text() string {
	if len(m.Payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Payload, &s); err == nil {
		return s
	}
	return string(m.Payload)
}

// Probe is the payload of a heartbeat probe and its acknowledgment.
type Probe struct {
	SentAt int64 `json:"ts"` // Unix milliseconds when the probe was sent
}

// Delivery reports what happened to an outbound message.
type Delivery int

const (
	// DeliverySent means the message was encoded and written to the live transport.
	DeliverySent Delivery = iota

	// DeliveryDeferred means no transport was open and the message was queued.
	DeliveryDeferred

	// DeliveryFailed means the message was neither written nor queued.
	DeliveryFailed
)

// String returns the string representation of a Delivery.
func (d Delivery) String() string {
	switch d {
	case DeliverySent:
		return "sent"
	case DeliveryDeferred:
		return "deferred"
	case DeliveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}
