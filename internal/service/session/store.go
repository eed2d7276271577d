package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelight/defectdesk/internal/model/chat"
)

// ErrSessionNotFound is returned for lookups against unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session holds one conversation thread. History mutation happens under the
// session's own lock so unrelated sessions never contend.
type Session struct {
	mu           sync.Mutex
	turn         sync.Mutex
	id           string
	messages     []chat.Message
	createdAt    int64
	lastActivity int64
	gone         bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LastActivity returns the last-activity timestamp in unix milliseconds.
func (s *Session) LastActivity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// BeginTurn claims the session's processing slot so request turns from the
// same session append their message pairs in order. Unrelated sessions are
// unaffected.
func (s *Session) BeginTurn() {
	s.turn.Lock()
}

// EndTurn releases the processing slot.
func (s *Session) EndTurn() {
	s.turn.Unlock()
}

// append adds messages and bumps last-activity once per message, never
// backwards. Reports false if the session was removed by the sweep.
func (s *Session) append(msgs ...chat.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gone {
		return false
	}

	for _, m := range msgs {
		if m.Timestamp == 0 {
			m.Timestamp = time.Now().UnixMilli()
		}
		s.messages = append(s.messages, m)
		if m.Timestamp > s.lastActivity {
			s.lastActivity = m.Timestamp
		}
	}
	return true
}

// Store keeps all live sessions. Map access is guarded by the store lock,
// per-session state by each session's lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore bootstraps the in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// NewID generates a fresh opaque session identifier.
func NewID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// GetOrCreate returns the session for id, creating it on first sight.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok = s.sessions[id]; ok {
		return sess
	}

	now := time.Now().UnixMilli()
	sess = &Session{id: id, createdAt: now, lastActivity: now}
	s.sessions[id] = sess
	return sess
}

// Append records a single message on the session, recreating the session if
// the sweep removed it mid-call.
func (s *Store) Append(id, sender, text string) {
	msg := chat.Message{Sender: sender, Message: text, Timestamp: time.Now().UnixMilli()}
	for {
		if s.GetOrCreate(id).append(msg) {
			return
		}
	}
}

// AppendExchange records a user/bot message pair under one lock acquisition,
// so pairs from concurrent turns never interleave in the history.
func (s *Store) AppendExchange(id, userText, botText string) {
	now := time.Now().UnixMilli()
	user := chat.Message{Sender: chat.SenderUser, Message: userText, Timestamp: now}
	bot := chat.Message{Sender: chat.SenderBot, Message: botText, Timestamp: now}
	for {
		if s.GetOrCreate(id).append(user, bot) {
			return
		}
	}
}

// History returns a copy of the stored transcript in append order.
func (s *Store) History(id string) ([]chat.Message, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	copied := make([]chat.Message, len(sess.messages))
	copy(copied, sess.messages)
	return copied, nil
}

// Remove deletes a session. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.mu.Lock()
		sess.gone = true
		sess.mu.Unlock()
		delete(s.sessions, id)
	}
}

// Sweep evicts every session idle longer than idleTimeout and returns how
// many were removed. Safe to run repeatedly.
func (s *Store) Sweep(now time.Time, idleTimeout time.Duration) int {
	cutoff := now.Add(-idleTimeout).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := sess.lastActivity < cutoff
		if expired {
			sess.gone = true
		}
		sess.mu.Unlock()

		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
