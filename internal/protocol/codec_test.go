package protocol

import (
	"context"
	"errors"
	"testing"
)

func TestJSONCodec_Encode(t *testing.T) {
	msg, err := NewMessage(CodeJoinRoom, map[string]int{"room_id": 7})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	msg = msg.WithInfo("from-terminal")

	data, err := JSONCodec{}.Encode(context.Background(), msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := `{"code":104,"data":{"room_id":7},"info":"from-terminal"}`
	if string(data) != want {
		t.Errorf("Encode = %s, want %s", data, want)
	}
}

func TestJSONCodec_EncodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (JSONCodec{}).Encode(ctx, Message{Code: CodeChat}); !errors.Is(err, context.Canceled) {
		t.Errorf("Encode error = %v, want context.Canceled", err)
	}
}

func TestJSONCodec_Decode(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		wantCode    int
		wantPayload string
		wantInfo    string
		wantErr     bool
	}{
		{
			name:        "full message",
			frame:       `{"code":4,"data":{"client_id":12},"info":"welcome"}`,
			wantCode:    CodeClientConnect,
			wantPayload: `{"client_id":12}`,
			wantInfo:    "welcome",
		},
		{
			name:     "code zero is valid",
			frame:    `{"code":0}`,
			wantCode: 0,
		},
		{
			name:     "null data",
			frame:    `{"code":9,"data":null}`,
			wantCode: CodeShowRooms,
		},
		{
			name:    "missing code",
			frame:   `{"data":"hello"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			frame:   `INTERACTIVE_SIGNAL_START`,
			wantErr: true,
		},
		{
			name:    "empty frame",
			frame:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := JSONCodec{}.Decode([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("Decode error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if msg.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", msg.Code, tt.wantCode)
			}
			if string(msg.Payload) != tt.wantPayload {
				t.Errorf("Payload = %s, want %s", msg.Payload, tt.wantPayload)
			}
			gotInfo := ""
			if msg.Info != nil {
				gotInfo = *msg.Info
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("Info = %q, want %q", gotInfo, tt.wantInfo)
			}
		})
	}
}

func TestMessage_Text(t *testing.T) {
	quoted := Message{Payload: []byte(`"Game starting!"`)}
	if got := quoted.Text(); got != "Game starting!" {
		t.Errorf("Text() = %q, want %q", got, "Game starting!")
	}

	object := Message{Payload: []byte(`{"a":1}`)}
	if got := object.Text(); got != `{"a":1}` {
		t.Errorf("Text() = %q, want raw payload", got)
	}

	if got := (Message{}).Text(); got != "" {
		t.Errorf("Text() on empty payload = %q, want empty", got)
	}
}

func TestMessage_DecodePayload(t *testing.T) {
	msg, err := NewMessage(CodeHeartbeatProbe, Probe{SentAt: 1705328200123})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	var probe Probe
	if err := msg.DecodePayload(&probe); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if probe.SentAt != 1705328200123 {
		t.Errorf("SentAt = %d, want 1705328200123", probe.SentAt)
	}

	if err := (Message{Code: CodeHeartbeatAck}).DecodePayload(&probe); err == nil {
		t.Error("expected error decoding empty payload")
	}
}

func TestCodeName(t *testing.T) {
	if got := CodeName(CodeHeartbeatAck); got != "heartbeat_ack" {
		t.Errorf("CodeName(CodeHeartbeatAck) = %q", got)
	}
	if got := CodeName(9999); got != "unknown" {
		t.Errorf("CodeName(9999) = %q, want unknown", got)
	}
}

func TestDelivery_String(t *testing.T) {
	if DeliverySent.String() != "sent" || DeliveryDeferred.String() != "deferred" {
		t.Errorf("unexpected Delivery strings: %s, %s", DeliverySent, DeliveryDeferred)
	}
	if DeliveryFailed.String() != "failed" {
		t.Errorf("DeliveryFailed = %s, want failed", DeliveryFailed)
	}
}

func TestJSONCodec_DecodeLegacy(t *testing.T) {
	codec := JSONCodec{Legacy: true}

	tests := []struct {
		name     string
		frame    string
		wantCode int
		wantText string
		wantErr  bool
	}{
		{"interactive start", `{"data":"INTERACTIVE_SIGNAL_START"}`, CodeInteractiveStart, "", false},
		{"interactive stop", `{"data":"INTERACTIVE_SIGNAL_STOP"}`, CodeInteractiveStop, "", false},
		{"plain text", `{"data":"Game starting!"}`, CodeTextNotice, "Game starting!", false},
		{"coded frame unchanged", `{"code":16,"data":"go"}`, CodeGameStarting, "go", false},
		{"object data still malformed", `{"data":{"a":1}}`, 0, "", true},
		{"no data still malformed", `{}`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := codec.Decode([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("Decode error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if msg.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", msg.Code, tt.wantCode)
			}
			if got := msg.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestMessage_DecodePayloadDoubleEncoded(t *testing.T) {
	msg := Message{Code: CodeClientConnect, Payload: []byte(`"{\"ts\":42}"`)}

	var probe Probe
	if err := msg.DecodePayload(&probe); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if probe.SentAt != 42 {
		t.Errorf("SentAt = %d, want 42", probe.SentAt)
	}

	bad := Message{Code: CodeClientConnect, Payload: []byte(`"not json"`)}
	if err := bad.DecodePayload(&probe); err == nil {
		t.Error("expected error for plain string payload")
	}
}
