package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/telemetry"
)

// ErrDuplicateCode is returned when two handlers claim the same code.
var ErrDuplicateCode = errors.New("duplicate handler code")

// Registry maps event codes to handlers. It is immutable after construction.
type Registry struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	handlers map[int]Handler
	skipped  int

	// Stats
	dispatched atomic.Int64
	unknown    atomic.Int64
	failed     atomic.Int64
	panicked   atomic.Int64
}

// NewRegistry indexes handlers by code. Handlers without a code are counted
// but not indexed.
func NewRegistry(logger *slog.Logger, handlers ...Handler) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		logger:   logger.With("component", "dispatch"),
		tracer:   telemetry.Tracer(),
		handlers: make(map[int]Handler, len(handlers)),
	}

	for _, h := range handlers {
		code, ok := h.Code()
		if !ok {
			r.skipped++
			continue
		}
		if _, exists := r.handlers[code]; exists {
			return nil, fmt.Errorf("%w: %d (%s)", ErrDuplicateCode, code, protocol.CodeName(code))
		}
		r.handlers[code] = h
	}

	r.logger.Debug("handler registry built",
		"handlers", len(r.handlers),
		"descriptors", r.skipped,
	)
	return r, nil
}

// Lookup returns the handler for code.
func (r *Registry) Lookup(code int) (Handler, bool) {
	h, ok := r.handlers[code]
	return h, ok
}

// Codes returns the registered codes in ascending order.
func (r *Registry) Codes() []int {
	out := make([]int, 0, len(r.handlers))
	for code := range r.handlers {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

// Dispatch routes msg to its handler. It returns false if no handler is
// registered. Handler errors and panics are logged, never returned.
func (r *Registry) Dispatch(ctx context.Context, c Client, sink Sink, msg protocol.Message) bool {
	h, ok := r.handlers[msg.Code]
	if !ok {
		r.unknown.Add(1)
		r.logger.Warn("no handler for code",
			"code", msg.Code,
			"name", protocol.CodeName(msg.Code),
		)
		return false
	}

	ctx, span := r.tracer.Start(ctx, "dispatch "+protocol.CodeName(msg.Code),
		trace.WithAttributes(attribute.Int("ratel.code", msg.Code)),
	)
	defer span.End()

	r.dispatched.Add(1)
	if sink == nil {
		sink = Discard
	}

	if err := r.invoke(ctx, h, c, sink, msg); err != nil {
		r.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("handler failed",
			"code", msg.Code,
			"name", protocol.CodeName(msg.Code),
			"error", err,
		)
	}
	return true
}

func (r *Registry) invoke(ctx context.Context, h Handler, c Client, sink Sink, msg protocol.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panicked.Add(1)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h.Handle(ctx, c, sink, msg)
}

// Stats returns dispatch statistics.
func (r *Registry) Stats() Stats {
	return Stats{
		Handlers:    len(r.handlers),
		Descriptors: r.skipped,
		Dispatched:  r.dispatched.Load(),
		Unknown:     r.unknown.Load(),
		Failed:      r.failed.Load(),
		Panicked:    r.panicked.Load(),
	}
}

// Stats contains dispatch statistics.
type Stats struct {
	Handlers    int   `json:"handlers"`
	Descriptors int   `json:"descriptors"`
	Dispatched  int64 `json:"dispatched"`
	Unknown     int64 `json:"unknown"`
	Failed      int64 `json:"failed"`
	Panicked    int64 `json:"panicked"`
}
