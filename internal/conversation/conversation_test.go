package conversation

import (
	"testing"
	"time"

	"crypto-portfolio-bot/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestSessionLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	assert.Equal(t, None, s.Get(1).State)

	s.Set(1, Session{State: AwaitingAction, Transaction: types.Transaction{ID: 7}})
	got := s.Get(1)
	assert.Equal(t, AwaitingAction, got.State)
	assert.Equal(t, int64(7), got.Transaction.ID)
	assert.Equal(t, None, s.Get(2).State, "sessions are per user")

	now = now.Add(9 * time.Minute)
	assert.Equal(t, AwaitingAction, s.Get(1).State)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, None, s.Get(1).State, "idle sessions expire")
}

func TestResetAndNoneClear(t *testing.T) {
	s := NewStore(0)

	s.Await(1, AwaitingBulk)
	s.Reset(1)
	assert.Equal(t, None, s.Get(1).State)

	s.Await(1, AwaitingAlert)
	s.Await(1, None)
	assert.Equal(t, None, s.Get(1).State)
	assert.Empty(t, s.sessions)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_selection", AwaitingSelection.String())
	assert.Equal(t, "none", None.String())
}
