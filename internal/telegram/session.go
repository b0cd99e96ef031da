package telegram

import (
	"sync"
	"time"
)

// SessionStep identifies which step of a multi-step conversation the user is in.
type SessionStep string

const (
	// /decline asks for the customer's reason before closing the case.
	StepDeclineReason SessionStep = "decline_reason"
)

// sessionTTL is the inactivity timeout for a session.
const sessionTTL = 5 * time.Minute

// Session holds the state of a multi-step staff interaction for one chat.
type Session struct {
	Step      SessionStep
	ThreadID  int
	Data      map[string]string
	ExpiresAt time.Time
}

type sessionStore struct {
	mu   sync.RWMutex
	data map[int64]*Session
	now  func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[int64]*Session), now: time.Now}
}

func (s *sessionStore) get(chatID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[chatID]
	if !ok || s.now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

func (s *sessionStore) set(chatID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.ExpiresAt = s.now().Add(sessionTTL)
	s.data[chatID] = sess
}

func (s *sessionStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, chatID)
}
