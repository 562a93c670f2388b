package voice

import (
	"sync"
	"time"
)

// Session is an open voice session.
type Session struct {
	UserID    uint64
	GuildID   uint64
	ChannelID uint64
	Start     time.Time
}

// Sessions holds the open voice sessions of the process. It is not durable:
// sessions open at shutdown are lost.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uint64]Session
}

// NewSessions creates an empty session map.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[uint64]Session)}
}

// Start opens a session, replacing any session the user already had.
func (s *Sessions) Start(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
}

// Get returns the user's open session.
func (s *Sessions) Get(userID uint64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// End removes the user's session in channelID and returns it together with
// the other sessions still open in that channel. Removal and the snapshot
// happen under one lock, so two users leaving at once each see the other at
// most once. Nothing changes when the user has no session in channelID.
func (s *Sessions) End(userID, channelID uint64) (Session, []Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || session.ChannelID != channelID {
		return Session{}, nil, false
	}
	delete(s.sessions, userID)

	var others []Session
	for _, other := range s.sessions {
		if other.ChannelID == channelID {
			others = append(others, other)
		}
	}

	return session, others, true
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
