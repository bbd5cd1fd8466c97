package dispatch

import (
	"context"

	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/session"
)

// Sink receives renderable text for the presentation layer.
type Sink interface {
	Append(text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string)

// Append implements Sink.
func (f SinkFunc) Append(text string) { f(text) }

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(string) {})

// Client is the view of the connection a handler gets.
type Client interface {
	// Session returns a copy of the live session.
	Session() session.Session

	// UpdateSession mutates the live session.
	UpdateSession(fn func(*session.Session))

	// Send transmits msg or queues it until the transport is open.
	Send(ctx context.Context, msg protocol.Message) (protocol.Delivery, error)

	// AckHeartbeat answers the armed heartbeat probe.
	AckHeartbeat(sentAt int64) bool
}

// Handler reacts to one event code.
type Handler interface {
	// Code returns the event code handled. ok is false for descriptors that
	// exist only for introspection and are never dispatched.
	Code() (code int, ok bool)

	// Handle processes a decoded message.
	Handle(ctx context.Context, c Client, sink Sink, msg protocol.Message) error
}

// HandleFunc is the signature of a handler body.
type HandleFunc func(ctx context.Context, c Client, sink Sink, msg protocol.Message) error

type funcHandler struct {
	code int
	fn   HandleFunc
}

// Func builds a dispatchable handler for code.
func Func(code int, fn HandleFunc) Handler {
	return funcHandler{code: code, fn: fn}
}

func (h funcHandler) Code() (int, bool) { return h.code, true }

func (h funcHandler) Handle(ctx context.Context, c Client, sink Sink, msg protocol.Message) error {
	return h.fn(ctx, c, sink, msg)
}

// Descriptor is a handler with no code. It is listed by the registry but
// never receives messages.
type Descriptor struct {
	Name string
}

// Code implements Handler.
func (Descriptor) Code() (int, bool) { return 0, false }

// Handle implements Handler.
func (Descriptor) Handle(context.Context, Client, Sink, protocol.Message) error { return nil }
