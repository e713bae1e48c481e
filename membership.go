package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// definitionStore is the read-only view of the externally-owned game
// definitions the coordinator consumes.
type definitionStore interface {
	GameDefinition(ctx context.Context, id int64) (GameDefinition, error)
}

// coordinator wires the session registry, the game-definition store,
// and the round policy together. Every inbound real-time operation
// lands here after the dispatcher decodes it.
type coordinator struct {
	reg      *Registry
	defs     definitionStore
	settings roundSettings
}

func newCoordinator(reg *Registry, defs definitionStore, settings roundSettings) *coordinator {
	return &coordinator{
		reg:      reg,
		defs:     defs,
		settings: settings,
	}
}

// createSession registers a new empty session for a game definition the
// requester owns, binds the requester as host, and returns the room
// code to the requester only.
func (co *coordinator) createSession(ctx context.Context, c *client, gameID int64) (string, error) {
	if c.userID == "" {
		return "", errUnauthorized
	}

	def, err := co.defs.GameDefinition(ctx, gameID)
	if err != nil {
		return "", errGameNotFound
	}
	if def.OwnerID != c.userID {
		return "", errUnauthorized
	}

	s := newSession(gameID, c.userID, c, co.settings)
	s.title = def.Title
	code := co.reg.insert(s)

	log.Info().Str("room", code).Int64("game", gameID).Str("host", c.userID).Msg("session created")

	c.enqueue(SessionCreatedMessage{
		Type: "session_created",
		Room: code,
	})

	return code, nil
}

// joinSession adds a participant to an active session. Username
// uniqueness is checked against all participants, connected or not, and
// the check-and-insert is atomic under the session lock. The joiner
// gets an acknowledgment; the host, and only the host, gets the updated
// roster.
func (co *coordinator) joinSession(code, username string, c *client) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errInvalidState
	}

	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == statusTerminated {
		return errRoomNotFound
	}
	if _, taken := s.participants[username]; taken {
		return errUsernameTaken
	}

	s.participants[username] = &Participant{
		client:    c,
		username:  username,
		connected: true,
	}
	if s.status == statusCreated {
		s.status = statusAwaitingPlayers
	}

	log.Info().Str("room", code).Str("username", username).Msg("participant joined")

	c.enqueue(JoinedMessage{
		Type:     "joined",
		Room:     code,
		Username: username,
	})
	s.notifyHostLocked(RosterMessage{
		Type:      "roster",
		Usernames: s.rosterLocked(),
	})

	return nil
}
