package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/ratel-client/internal/connection"
	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/queue"
	"github.com/rickgao/ratel-client/internal/session"
)

// fakeManager serves canned state to the status router.
type fakeManager struct {
	state   connection.State
	stats   connection.ManagerStats
	session session.Session
}

func (f *fakeManager) Connect(context.Context, string) error { return nil }
func (f *fakeManager) Send(context.Context, protocol.Message) (protocol.Delivery, error) {
	return protocol.DeliveryDeferred, nil
}
func (f *fakeManager) Close() error { return nil }
func (f *fakeManager) State() connection.State { return f.state }
func (f *fakeManager) Stats() connection.ManagerStats { return f.stats }
func (f *fakeManager) Session() session.Session { return f.session }
func (f *fakeManager) Rename(_ context.Context, nick string) (protocol.Delivery, error) {
	f.session.User.Nickname = nick
	return protocol.DeliveryDeferred, nil
}
func (f *fakeManager) AddListener(connection.Listener) {}
func (f *fakeManager) Err() error { return nil }

func TestStatusRouter_Health(t *testing.T) {
	tests := []struct {
		state      connection.State
		wantCode   int
		wantStatus string
	}{
		{connection.StateOpen, http.StatusOK, "healthy"},
		{connection.StateReconnecting, http.StatusOK, "degraded"},
		{connection.StateFailed, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			m := &fakeManager{state: tt.state, stats: connection.ManagerStats{State: tt.state.String()}}
			rec := httptest.NewRecorder()
			newStatusRouter(m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Status string `json:"status"`
				Conn   struct {
					State string `json:"state"`
				} `json:"connection"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Conn.State != tt.state.String() {
				t.Errorf("connection.state = %q, want %q", body.Conn.State, tt.state.String())
			}
		})
	}
}

func TestStatusRouter_Session(t *testing.T) {
	s := session.New()
	s.ClientID = 42
	s.User.Nickname = "rick"
	s.Interactive = true
	m := &fakeManager{session: s}

	rec := httptest.NewRecorder()
	newStatusRouter(m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var body struct {
		ClientID    int             `json:"client_id"`
		User        session.Profile `json:"user"`
		Interactive bool            `json:"interactive"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ClientID != 42 || body.User.Nickname != "rick" || !body.Interactive {
		t.Errorf("session body = %+v", body)
	}
}

func TestStatusRouter_Queue(t *testing.T) {
	m := &fakeManager{stats: connection.ManagerStats{
		Queue: queue.Stats{Count: 3, Capacity: 50, TotalEvicted: 1},
	}}

	rec := httptest.NewRecorder()
	newStatusRouter(m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/queue", nil))

	var got queue.Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Count != 3 || got.Capacity != 50 || got.TotalEvicted != 1 {
		t.Errorf("queue stats = %+v", got)
	}
}

func TestStatusRouter_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newStatusRouter(&fakeManager{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", rec.Code)
	}
}
