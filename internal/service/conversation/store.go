// Package conversation owns the in-memory session table: bounded history,
// activity-based expiry, and the background reaper that frees idle sessions.
package conversation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	model "github.com/quiverlab/toolgate/internal/model/conversation"
)

const reapInterval = 60 * time.Second

type session struct {
	messages     []model.Message
	lastActivity time.Time
}

// Store holds all live sessions. Sessions never survive a restart.
type Store struct {
	mu             sync.Mutex
	sessions       map[string]*session
	maxHistory     int
	sessionTimeout time.Duration
	now            func() time.Time
}

// NewStore bootstraps an empty session table. maxHistory bounds the
// messages retained per session; sessionTimeout is the idle age after which
// the reaper deletes a session.
func NewStore(maxHistory int, sessionTimeout time.Duration) *Store {
	return &Store{
		sessions:       make(map[string]*session),
		maxHistory:     maxHistory,
		sessionTimeout: sessionTimeout,
		now:            time.Now,
	}
}

// Create inserts a fresh session and returns its unguessable id.
func (s *Store) Create(_ context.Context) string {
	id := newSessionID()

	s.mu.Lock()
	s.sessions[id] = &session{
		messages:     make([]model.Message, 0, 8),
		lastActivity: s.now().UTC(),
	}
	s.mu.Unlock()

	return id
}

// Get looks up a session and refreshes its activity timestamp: active use
// must not expire a session mid-conversation. Returns false for unknown,
// already-reaped, and expired-but-not-yet-swept ids; callers treat that as
// "needs a new session".
func (s *Store) Get(_ context.Context, id string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, false
	}

	now := s.now().UTC()
	if now.Sub(sess.lastActivity) > s.sessionTimeout {
		// dead since before the reaper's next tick; a lookup must not
		// resurrect it
		delete(s.sessions, id)
		return model.Session{}, false
	}
	sess.lastActivity = now

	return model.Session{
		ID:           id,
		Messages:     copyMessages(sess.messages),
		LastActivity: sess.lastActivity,
	}, true
}

// Append adds a message, trims history to the bound from the front, and
// refreshes activity. Appending to an unknown id is a no-op.
func (s *Store) Append(_ context.Context, id string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	sess.messages = append(sess.messages, msg)
	if overflow := len(sess.messages) - s.maxHistory; overflow > 0 {
		sess.messages = append(sess.messages[:0:0], sess.messages[overflow:]...)
	}
	sess.lastActivity = s.now().UTC()
}

// History returns the session's messages oldest-first as a defensive copy.
func (s *Store) History(_ context.Context, id string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return copyMessages(sess.messages)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run drives the background reaper until ctx is cancelled. It must run even
// with zero traffic, so expired sessions are freed without waiting for the
// next request.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := s.sweep(); reaped > 0 {
				log.Printf("[store] reaped %d expired sessions", reaped)
			}
		}
	}
}

// sweep deletes every session idle past the timeout and reports how many.
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	reaped := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActivity) > s.sessionTimeout {
			delete(s.sessions, id)
			reaped++
		}
	}
	return reaped
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// no safe fallback when the platform RNG is broken
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func copyMessages(msgs []model.Message) []model.Message {
	copied := make([]model.Message, len(msgs))
	copy(copied, msgs)
	return copied
}
