// Package conversation tracks which follow-up message each user is expected to send next.
package conversation

import (
	"sync"
	"time"

	"crypto-portfolio-bot/internal/types"
)

type State int

const (
	None State = iota
	AwaitingTransaction
	AwaitingBulk
	AwaitingResetConfirmation
	AwaitingSelection
	AwaitingAction
	AwaitingEdit
	AwaitingAlert
	AwaitingReport
)

func (s State) String() string {
	switch s {
	case AwaitingTransaction:
		return "awaiting_transaction"
	case AwaitingBulk:
		return "awaiting_bulk"
	case AwaitingResetConfirmation:
		return "awaiting_reset_confirmation"
	case AwaitingSelection:
		return "awaiting_selection"
	case AwaitingAction:
		return "awaiting_action"
	case AwaitingEdit:
		return "awaiting_edit"
	case AwaitingAlert:
		return "awaiting_alert"
	case AwaitingReport:
		return "awaiting_report"
	}
	return "none"
}

// Session is the pending step of one user.
type Session struct {
	State State
	// Candidates are the transactions offered by a selection menu.
	Candidates []types.Transaction
	// Transaction is the one picked for delete or edit.
	Transaction types.Transaction
	UpdatedAt   time.Time
}

// Store keeps sessions in memory. A session idle for longer than the timeout is treated as None.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
	timeout  time.Duration
	now      func() time.Time
}

func NewStore(timeout time.Duration) *Store {
	return &Store{
		sessions: make(map[int64]Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Get returns the user's live session; expired sessions are dropped.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}
	}
	if s.timeout > 0 && s.now().Sub(sess.UpdatedAt) > s.timeout {
		delete(s.sessions, userID)
		return Session{}
	}
	return sess
}

// Set moves the user to sess.State, stamping the update time.
func (s *Store) Set(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.State == None {
		delete(s.sessions, userID)
		return
	}
	sess.UpdatedAt = s.now()
	s.sessions[userID] = sess
}

// Await is Set for states without context.
func (s *Store) Await(userID int64, state State) {
	s.Set(userID, Session{State: state})
}

// Reset ends whatever the user was doing.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
