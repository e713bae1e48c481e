package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeDefs satisfies definitionStore without a database, in the style
// of an injected fake store.
type fakeDefs struct {
	defs map[int64]GameDefinition
}

func (f *fakeDefs) GameDefinition(_ context.Context, id int64) (GameDefinition, error) {
	def, ok := f.defs[id]
	if !ok {
		return GameDefinition{}, errGameNotFound
	}
	return def, nil
}

func newTestClient(userID string) *client {
	return &client{
		send:   make(chan any, 64),
		id:     uuid.NewString(),
		userID: userID,
	}
}

func testSettings(window time.Duration) roundSettings {
	return roundSettings{
		schedule:     []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
		answerWindow: window,
		points:       100,
	}
}

func testDefs() *fakeDefs {
	return &fakeDefs{
		defs: map[int64]GameDefinition{
			1: {
				ID:      1,
				OwnerID: "alice",
				Title:   "Nineties Hits",
				Songs: []Song{
					{Title: "One", CorrectAnswer: "Test Song", AudioLocator: "https://cdn.example/previews/1.mp3"},
					{Title: "Two", CorrectAnswer: "Another Song", AudioLocator: "https://cdn.example/previews/2.mp3"},
				},
			},
			2: {
				ID:      2,
				OwnerID: "alice",
				Title:   "One Hit Wonder",
				Songs: []Song{
					{Title: "Only", CorrectAnswer: "Test Song", AudioLocator: "https://cdn.example/previews/9.mp3"},
				},
			},
		},
	}
}

// waitFor drains a client's outbound queue until a message of type T
// arrives.
func waitFor[T any](t *testing.T, c *client, timeout time.Duration) T {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.send:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// expectNone fails if a message of type T shows up within the window.
func expectNone[T any](t *testing.T, c *client, window time.Duration) {
	t.Helper()

	deadline := time.After(window)
	for {
		select {
		case msg := <-c.send:
			if v, ok := msg.(T); ok {
				t.Fatalf("unexpected %T: %+v", v, v)
			}
		case <-deadline:
			return
		}
	}
}

// startedSession creates, joins, and starts a session and returns the
// room code along with the host and participant clients.
func startedSession(t *testing.T, co *coordinator, gameID int64, usernames ...string) (string, *client, []*client) {
	t.Helper()

	host := newTestClient("alice")
	code, err := co.createSession(context.Background(), host, gameID)
	require.NoError(t, err)

	players := make([]*client, 0, len(usernames))
	for _, username := range usernames {
		p := newTestClient("")
		require.NoError(t, co.joinSession(code, username, p))
		players = append(players, p)
	}

	require.NoError(t, co.startSession(context.Background(), code, host))
	return code, host, players
}
