package session

import (
	"bytes"
	"encoding/json"
	"time"
)

// UnassignedClientID marks a session the server has not identified yet.
const UnassignedClientID = -1

// Profile is the user-facing part of the session.
type Profile struct {
	Nickname string `json:"nickname"`
	Watching bool   `json:"watching"`
}

// RoomFacts are the last known artifacts of the current room.
type RoomFacts struct {
	LastPokers         json.RawMessage `json:"last_pokers,omitempty"` // Opaque card set from the last play
	LastSellerNickname string          `json:"last_seller_nickname,omitempty"`
	LastSellerType     string          `json:"last_seller_type,omitempty"`
}

// Session holds the facts the client keeps across reconnects.
type Session struct {
	ClientID int
	User     Profile
	Room     RoomFacts

	// Interactive is true while the server waits for input. It is live-only
	// and never written to a snapshot.
	Interactive bool
}

// New returns a session with no assigned client.
func New() Session {
	return Session{ClientID: UnassignedClientID}
}

// Assigned reports whether the server has given this client an identifier.
func (s Session) Assigned() bool {
	return s.ClientID != UnassignedClientID
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	s.Room = s.Room.clone()
	return s
}

func (r RoomFacts) clone() RoomFacts {
	if r.LastPokers != nil {
		r.LastPokers = bytes.Clone(r.LastPokers)
	}
	return r
}

// Record is a timestamped copy of the snapshot-covered session fields.
type Record struct {
	ClientID  int       `json:"client_id"`
	User      Profile   `json:"user"`
	Room      RoomFacts `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord captures s at the given time.
func NewRecord(s Session, at time.Time) Record {
	return Record{
		ClientID:  s.ClientID,
		User:      s.User,
		Room:      s.Room.clone(),
		Timestamp: at,
	}
}

// Fresh reports whether the record is younger than window at now.
func (r Record) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.Timestamp) < window
}

// applyTo overwrites the covered fields of s in place.
func (r Record) applyTo(s *Session) {
	s.ClientID = r.ClientID
	s.User = r.User
	s.Room = r.Room.clone()
}

func (r Record) clone() Record {
	r.Room = r.Room.clone()
	return r
}
