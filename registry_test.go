package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCodesAreUniqueAndWellFormed(t *testing.T) {
	reg := newRegistry()

	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		code := reg.insert(newSession(1, "alice", nil, testSettings(time.Minute)))

		require.Len(t, code, codeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(letters, r), "unexpected rune %q in code %q", r, code)
		}
		require.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}

	assert.Equal(t, 200, reg.count())
}

func TestLookupUnknownRoom(t *testing.T) {
	reg := newRegistry()

	_, ok := reg.lookup("ZZZZZZ")
	assert.False(t, ok)
}

func TestRemoveDeletesAndReleases(t *testing.T) {
	reg := newRegistry()
	s := newSession(1, "alice", nil, testSettings(time.Minute))
	code := reg.insert(s)

	reg.remove(code)

	_, ok := reg.lookup(code)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.count())

	s.mu.Lock()
	assert.Equal(t, statusTerminated, s.status)
	assert.Nil(t, s.timer)
	s.mu.Unlock()

	// Removing again is a no-op.
	reg.remove(code)
}

func TestRemoveCancelsArmedTimer(t *testing.T) {
	reg := newRegistry()
	s := newSession(1, "alice", nil, testSettings(time.Minute))
	code := reg.insert(s)

	fired := make(chan uint64, 1)
	s.mu.Lock()
	s.armTimerLocked(20*time.Millisecond, func(epoch uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if epoch == s.timerEpoch {
			fired <- epoch
		}
	})
	s.mu.Unlock()

	reg.remove(code)

	select {
	case <-fired:
		t.Fatal("timer fired against a deleted session")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestArmTimerReplacesPendingDeadline(t *testing.T) {
	s := newSession(1, "alice", nil, testSettings(time.Minute))

	fired := make(chan uint64, 2)
	callback := func(epoch uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if epoch == s.timerEpoch {
			fired <- epoch
		}
	}

	s.mu.Lock()
	s.armTimerLocked(10*time.Millisecond, callback)
	s.armTimerLocked(30*time.Millisecond, callback)
	s.mu.Unlock()

	// Only the replacement deadline may fire; at most one live timer
	// per session.
	var count int
	deadline := time.After(80 * time.Millisecond)
	for {
		select {
		case <-fired:
			count++
		case <-deadline:
			require.Equal(t, 1, count)
			return
		}
	}
}
