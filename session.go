package main

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type sessionStatus int

const (
	statusCreated sessionStatus = iota
	statusAwaitingPlayers
	statusRoundInFlight
	statusPaused
	statusResolved
	statusTerminated
)

func (s sessionStatus) String() string {
	switch s {
	case statusCreated:
		return "created"
	case statusAwaitingPlayers:
		return "awaiting_players"
	case statusRoundInFlight:
		return "round_in_flight"
	case statusPaused:
		return "paused"
	case statusResolved:
		return "resolved"
	case statusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Participant is a joined player other than the host, identified by a
// session-unique username.
type Participant struct {
	client         *client
	username       string
	connected      bool
	disconnectedAt time.Time
}

// roundSettings is the fixed per-session round policy, copied from the
// server config at session creation.
type roundSettings struct {
	// schedule holds the escalating snippet durations tried, in order,
	// for a song until answered or exhausted.
	schedule []time.Duration
	// answerWindow is identical across attempts within a song; only the
	// snippet gets longer, not the time to answer.
	answerWindow time.Duration
	points       int
}

// Session is one in-progress game instance identified by a room code.
// All mutation happens under mu; inbound events for a session are
// serialized by locking around each handler invocation.
type Session struct {
	mu sync.Mutex

	code       string
	gameID     int64
	hostUserID string
	hostConn   *client

	title        string
	songs        []Song
	participants map[string]*Participant
	scores       map[string]int

	currentSong       int
	currentAttempt    int
	answeredCorrectly bool
	status            sessionStatus
	settings          roundSettings

	// At most one live deadline per session. timerEpoch is bumped on
	// every arm/cancel so a stale callback can recognize itself.
	timer      *time.Timer
	timerEpoch uint64
}

func newSession(gameID int64, hostUserID string, hostConn *client, settings roundSettings) *Session {
	return &Session{
		gameID:       gameID,
		hostUserID:   hostUserID,
		hostConn:     hostConn,
		participants: make(map[string]*Participant),
		scores:       make(map[string]int),
		status:       statusCreated,
		settings:     settings,
	}
}

// armTimerLocked replaces any live deadline with a fresh one. The
// callback re-checks the epoch under the session lock, so a deadline
// canceled or replaced after firing is a no-op.
func (s *Session) armTimerLocked(d time.Duration, fn func(epoch uint64)) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerEpoch++
	epoch := s.timerEpoch
	s.timer = time.AfterFunc(d, func() {
		fn(epoch)
	})
}

// cancelTimerLocked disarms the pending deadline, if any, and
// invalidates callbacks already in flight.
func (s *Session) cancelTimerLocked() {
	s.timerEpoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// broadcastLocked fans a notification out to the host and every
// connected participant. Sends are non-blocking; a client with a full
// send buffer misses the message rather than stalling the session.
func (s *Session) broadcastLocked(msg any) {
	if s.hostConn != nil {
		s.hostConn.enqueue(msg)
	}
	for _, p := range s.participants {
		if !p.connected || p.client == nil {
			continue
		}
		p.client.enqueue(msg)
	}
}

// notifyHostLocked sends a message to the host connection only.
func (s *Session) notifyHostLocked(msg any) {
	if s.hostConn != nil {
		s.hostConn.enqueue(msg)
	}
}

// rosterLocked returns the usernames of all participants, connected or
// not, in stable order.
func (s *Session) rosterLocked() []string {
	names := make([]string, 0, len(s.participants))
	for name := range s.participants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// leaderboardLocked ranks participants by score descending, ties broken
// by username ascending, truncated to the top three.
func (s *Session) leaderboardLocked() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.participants))
	for name := range s.participants {
		entries = append(entries, LeaderboardEntry{
			Username: name,
			Score:    s.scores[name],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})

	if len(entries) > 3 {
		entries = entries[:3]
	}
	return entries
}

// scoresLocked returns a copy of the score table safe to hand to the
// outbound path.
func (s *Session) scoresLocked() map[string]int {
	scores := make(map[string]int, len(s.scores))
	for name, points := range s.scores {
		scores[name] = points
	}
	return scores
}

// participantByConnLocked resolves the participant owning a connection.
func (s *Session) participantByConnLocked(c *client) *Participant {
	for _, p := range s.participants {
		if p.client != nil && p.client.id == c.id {
			return p
		}
	}
	return nil
}

// release cancels any pending deadline and marks the session dead. Safe
// to call more than once; the registry calls it on every deletion path.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimerLocked()
	if s.status != statusTerminated {
		s.status = statusTerminated
		log.Debug().Str("room", s.code).Msg("session released")
	}
}
