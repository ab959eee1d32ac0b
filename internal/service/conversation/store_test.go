package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/quiverlab/toolgate/internal/model/conversation"
)

func TestCreateAndHistoryRoundTrip(t *testing.T) {
	s := NewStore(40, 30*time.Minute)
	ctx := context.Background()

	id := s.Create(ctx)
	require.Len(t, id, 32)

	s.Append(ctx, id, model.Message{Role: model.RoleUser, Content: "hi"})
	s.Append(ctx, id, model.Message{Role: model.RoleAssistant, Content: "hello"})

	h := s.History(ctx, id)
	require.Len(t, h, 2)
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "hi"}, h[0])
	assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: "hello"}, h[1])
}

func TestCreateIDsAreUnique(t *testing.T) {
	s := NewStore(10, time.Minute)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Create(ctx)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestGetUnknownID(t *testing.T) {
	s := NewStore(10, time.Minute)

	_, ok := s.Get(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.False(t, ok)
}

func TestHistoryBound(t *testing.T) {
	s := NewStore(2, time.Minute)
	ctx := context.Background()
	id := s.Create(ctx)

	for i, content := range []string{"one", "two", "three", "four", "five", "six"} {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		s.Append(ctx, id, model.Message{Role: role, Content: content})
	}

	h := s.History(ctx, id)
	require.Len(t, h, 2)
	assert.Equal(t, "five", h[0].Content)
	assert.Equal(t, "six", h[1].Content)
}

func TestHistoryDefensiveCopy(t *testing.T) {
	s := NewStore(10, time.Minute)
	ctx := context.Background()
	id := s.Create(ctx)
	s.Append(ctx, id, model.Message{Role: model.RoleUser, Content: "original"})

	h := s.History(ctx, id)
	h[0].Content = "mutated"

	again := s.History(ctx, id)
	assert.Equal(t, "original", again[0].Content)
}

func TestAppendUnknownIDIsNoop(t *testing.T) {
	s := NewStore(10, time.Minute)
	ctx := context.Background()

	s.Append(ctx, "nope", model.Message{Role: model.RoleUser, Content: "x"})
	assert.Equal(t, 0, s.Len())
}

func TestSweepReapsIdleSessions(t *testing.T) {
	s := NewStore(10, 30*time.Minute)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	id := s.Create(ctx)
	require.Equal(t, 1, s.Len())

	s.now = func() time.Time { return base.Add(30*time.Minute + time.Second) }
	reaped := s.sweep()

	assert.Equal(t, 1, reaped)
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get(ctx, id)
	assert.False(t, ok)
}

func TestGetExpiredButUnsweptSession(t *testing.T) {
	s := NewStore(10, 30*time.Minute)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	id := s.Create(ctx)

	// past the timeout but before any sweep: the session is already dead
	s.now = func() time.Time { return base.Add(31 * time.Minute) }
	_, ok := s.Get(ctx, id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// and the failed lookup must not have refreshed it back to life
	s.now = func() time.Time { return base.Add(32 * time.Minute) }
	_, ok = s.Get(ctx, id)
	assert.False(t, ok)
}

func TestGetExtendsLife(t *testing.T) {
	s := NewStore(10, 30*time.Minute)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	id := s.Create(ctx)

	// a read at t+29m refreshes activity, so a sweep at t+45m keeps it
	s.now = func() time.Time { return base.Add(29 * time.Minute) }
	_, ok := s.Get(ctx, id)
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(45 * time.Minute) }
	assert.Equal(t, 0, s.sweep())
	assert.Equal(t, 1, s.Len())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := NewStore(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}
