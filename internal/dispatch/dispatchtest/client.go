// Package dispatchtest provides in-memory doubles for handler tests.
package dispatchtest

import (
	"context"
	"strings"
	"sync"

	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/session"
)

// Client is a dispatch.Client that records sends and acks.
type Client struct {
	Store *session.Store

	mu   sync.Mutex
	sent []protocol.Message
	acks []int64
}

// NewClient creates a client around a fresh in-memory session.
func NewClient() *Client {
	return &Client{Store: session.NewStore(nil, 0, nil)}
}

func (c *Client) Session() session.Session { return c.Store.Get() }

func (c *Client) UpdateSession(fn func(*session.Session)) { c.Store.Update(fn) }

func (c *Client) Send(_ context.Context, msg protocol.Message) (protocol.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return protocol.DeliverySent, nil
}

func (c *Client) AckHeartbeat(sentAt int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = append(c.acks, sentAt)
	return true
}

// Sent returns the messages passed to Send.
func (c *Client) Sent() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

// Acks returns the timestamps passed to AckHeartbeat.
func (c *Client) Acks() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.acks...)
}

// Sink collects appended text.
type Sink struct {
	mu    sync.Mutex
	lines []string
}

// Append implements dispatch.Sink.
func (s *Sink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

// Lines returns everything appended so far.
func (s *Sink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// String joins the lines with newlines.
func (s *Sink) String() string {
	return strings.Join(s.Lines(), "\n")
}
