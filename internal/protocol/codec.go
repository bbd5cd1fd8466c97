package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned by Decode for frames that do not carry a message.
var ErrMalformedFrame = errors.New("malformed frame")

// Codec converts between logical messages and transport bytes.
type Codec interface {
	// Encode serializes an outgoing message.
	Encode(ctx context.Context, msg Message) ([]byte, error)

	// Decode parses an incoming frame.
	Decode(data []byte) (Message, error)
}

// JSONCodec encodes messages as {"code":1,"data":...,"info":"..."}.
//
// With Legacy set, a frame without a code whose data is a string is accepted:
// the interactive markers map to CodeInteractiveStart and CodeInteractiveStop,
// any other text to CodeTextNotice.
type JSONCodec struct {
	Legacy bool
}

// messageWire distinguishes a missing code from code 0.
type messageWire struct {
	Code *int            `json:"code"`
	Data json.RawMessage `json:"data"`
	Info *string         `json:"info"`
}

// Encode implements Codec.
func (JSONCodec) Encode(ctx context.Context, msg Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode code %d: %w", msg.Code, err)
	}
	return data, nil
}

// Decode implements Codec.
func (c JSONCodec) Decode(data []byte) (Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Message{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	var wire messageWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if wire.Code == nil {
		if c.Legacy {
			if msg, ok := decodeLegacy(wire); ok {
				return msg, nil
			}
		}
		return Message{}, fmt.Errorf("%w: missing code", ErrMalformedFrame)
	}

	msg := Message{
		Code: *wire.Code,
		Info: wire.Info,
	}
	if len(wire.Data) > 0 && !bytes.Equal(wire.Data, []byte("null")) {
		msg.Payload = wire.Data
	}
	return msg, nil
}

func decodeLegacy(wire messageWire) (Message, bool) {
	var text string
	if err := json.Unmarshal(wire.Data, &text); err != nil {
		return Message{}, false
	}

	switch text {
	case InteractiveSignalStart:
		return Message{Code: CodeInteractiveStart}, true
	case InteractiveSignalStop:
		return Message{Code: CodeInteractiveStop}, true
	}
	return Message{Code: CodeTextNotice, Payload: wire.Data, Info: wire.Info}, true
}
