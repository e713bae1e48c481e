package main

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// startSession loads the immutable song snapshot and kicks off the
// first attempt of the first song. Host-only; the requester identity is
// checked against the identity bound at creation, not just the socket.
func (co *coordinator) startSession(ctx context.Context, code string, c *client) error {
	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.userID == "" || c.userID != s.hostUserID {
		return errUnauthorized
	}
	if s.status != statusCreated && s.status != statusAwaitingPlayers {
		return errInvalidState
	}

	// The session stays locked while the snapshot loads, so no mutating
	// command can interleave with the suspension point.
	def, err := co.defs.GameDefinition(ctx, s.gameID)
	if err != nil {
		return errGameNotFound
	}
	if len(def.Songs) == 0 {
		return errInvalidState
	}

	s.title = def.Title
	s.songs = make([]Song, len(def.Songs))
	copy(s.songs, def.Songs)

	s.currentSong = 0
	s.currentAttempt = 0
	s.answeredCorrectly = false
	s.scores = make(map[string]int)
	s.status = statusRoundInFlight

	log.Info().Str("room", code).Int("songs", len(s.songs)).Msg("session starting")

	s.broadcastLocked(SessionStartingMessage{
		Type:  "session_starting",
		Title: s.title,
		Songs: len(s.songs),
	})

	s.beginAttemptLocked()
	return nil
}

// beginAttemptLocked either announces the next escalating snippet for
// the current song, or, once the schedule is exhausted, announces that
// nobody answered and halts. It never auto-advances to the next song;
// that is the host's call.
func (s *Session) beginAttemptLocked() {
	if s.currentAttempt >= len(s.settings.schedule) {
		s.status = statusResolved
		log.Debug().Str("room", s.code).Int("song", s.currentSong+1).Msg("attempts exhausted")

		s.broadcastLocked(NoCorrectAnswerMessage{
			Type: "no_correct_answer",
			Song: s.currentSong + 1,
		})
		return
	}

	snippet := s.settings.schedule[s.currentAttempt]
	deadline := time.Now().Add(s.settings.answerWindow)
	song := s.songs[s.currentSong]

	s.broadcastLocked(RoundBeginMessage{
		Type:     "round_begin",
		Song:     s.currentSong + 1,
		Attempt:  s.currentAttempt + 1,
		Audio:    song.AudioLocator,
		Snippet:  snippet.Milliseconds(),
		Deadline: deadline,
	})

	s.currentAttempt++
	s.armTimerLocked(s.settings.answerWindow, s.deadlineExpired)
}

// deadlineExpired fires when the answer window elapses with no correct
// answer and escalates to the next, longer snippet. The session may
// have been answered, advanced, paused, or deleted since the timer was
// armed; a stale epoch means this callback lost that race and backs
// off without touching anything.
func (s *Session) deadlineExpired(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.timerEpoch || s.status != statusRoundInFlight || s.answeredCorrectly {
		return
	}
	s.timer = nil

	s.beginAttemptLocked()
}

// submitAnswer evaluates a participant's guess against the current
// song. First correct answer wins; the check-and-clear of the pending
// timer happens atomically under the session lock, so a deadline firing
// concurrently can never re-open an answered song. Wrong guesses are
// silently discarded.
func (co *coordinator) submitAnswer(code string, c *client, text string) error {
	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participantByConnLocked(c)
	if p == nil {
		return errUnauthorized
	}
	switch s.status {
	case statusCreated, statusAwaitingPlayers, statusPaused:
		return errInvalidState
	}
	if s.status != statusRoundInFlight || s.answeredCorrectly {
		// Song already resolved; later submissions are no-ops.
		return nil
	}

	guess := strings.TrimSpace(text)
	want := strings.TrimSpace(s.songs[s.currentSong].CorrectAnswer)
	if !strings.EqualFold(guess, want) {
		return nil
	}

	s.answeredCorrectly = true
	s.status = statusResolved
	s.cancelTimerLocked()
	s.scores[p.username] += s.settings.points

	log.Info().
		Str("room", code).
		Str("username", p.username).
		Int("song", s.currentSong+1).
		Int("score", s.scores[p.username]).
		Msg("correct answer")

	s.broadcastLocked(CorrectAnswerMessage{
		Type:     "correct_answer",
		Username: p.username,
		Answer:   guess,
		Scores:   s.scoresLocked(),
	})

	return nil
}

// advanceSong moves the session to the next song, or past the last song
// to the final leaderboard and deletion. Host-only.
func (co *coordinator) advanceSong(code string, c *client) error {
	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()

	if c.userID == "" || c.userID != s.hostUserID {
		s.mu.Unlock()
		return errUnauthorized
	}
	switch s.status {
	case statusRoundInFlight, statusResolved, statusPaused:
	default:
		s.mu.Unlock()
		return errInvalidState
	}

	s.cancelTimerLocked()
	s.currentSong++
	s.currentAttempt = 0
	s.answeredCorrectly = false

	if s.currentSong < len(s.songs) {
		s.status = statusRoundInFlight
		log.Debug().Str("room", code).Int("song", s.currentSong+1).Msg("advancing song")
		s.beginAttemptLocked()
		s.mu.Unlock()
		return nil
	}

	leaderboard := s.leaderboardLocked()
	s.broadcastLocked(SessionEndedMessage{
		Type:        "session_ended",
		Leaderboard: leaderboard,
	})
	s.mu.Unlock()

	log.Info().Str("room", code).Msg("session ended")
	co.reg.remove(code)
	return nil
}

// resumeSession is the explicit host action that exits Paused: the
// current attempt is re-armed with a full answer window. There is no
// automatic resume on reconnection.
func (co *coordinator) resumeSession(code string, c *client) error {
	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.userID == "" || c.userID != s.hostUserID {
		return errUnauthorized
	}
	if s.status != statusPaused {
		return errInvalidState
	}

	s.status = statusRoundInFlight
	deadline := time.Now().Add(s.settings.answerWindow)

	log.Info().Str("room", code).Msg("session resumed")

	s.broadcastLocked(SessionResumedMessage{
		Type:     "session_resumed",
		Deadline: deadline,
	})
	s.armTimerLocked(s.settings.answerWindow, s.deadlineExpired)

	return nil
}

// abandonSession ends a session early with whatever leaderboard exists.
// Host-only; the escape hatch for sessions stuck in Paused or waiting
// after exhausted attempts.
func (co *coordinator) abandonSession(code string, c *client) error {
	s, ok := co.reg.lookup(code)
	if !ok {
		return errRoomNotFound
	}

	s.mu.Lock()
	if c.userID == "" || c.userID != s.hostUserID {
		s.mu.Unlock()
		return errUnauthorized
	}
	s.broadcastLocked(SessionEndedMessage{
		Type:        "session_ended",
		Leaderboard: s.leaderboardLocked(),
	})
	s.mu.Unlock()

	log.Info().Str("room", code).Msg("session abandoned")
	co.reg.remove(code)
	return nil
}
