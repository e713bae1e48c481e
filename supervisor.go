package main

import (
	"time"

	"github.com/rs/zerolog/log"
)

// connectionClosed handles a transport-level close event. Host loss
// terminates the session immediately, with no grace period. A
// participant loss marks them disconnected and pauses an in-flight
// round so the session does not silently continue short-handed;
// recovery from Paused is an explicit host action.
func (co *coordinator) connectionClosed(c *client) {
	for _, s := range co.reg.snapshot() {
		s.mu.Lock()

		if s.hostConn != nil && s.hostConn.id == c.id {
			code := s.code
			s.mu.Unlock()

			log.Info().Str("room", code).Msg("host disconnected, terminating session")
			co.reg.remove(code)
			continue
		}

		p := s.participantByConnLocked(c)
		if p == nil || !p.connected {
			s.mu.Unlock()
			continue
		}

		p.connected = false
		p.disconnectedAt = time.Now()
		roundInFlight := s.status == statusRoundInFlight

		log.Info().
			Str("room", s.code).
			Str("username", p.username).
			Bool("round_in_flight", roundInFlight).
			Msg("participant disconnected")

		if roundInFlight {
			// Freeze the attempt in place rather than losing it to the
			// pending deadline.
			s.status = statusPaused
			s.cancelTimerLocked()

			s.broadcastLocked(SessionPausedMessage{
				Type:     "session_paused",
				Reason:   "participant_disconnected",
				Username: p.username,
			})
		}

		s.notifyHostLocked(ParticipantDisconnectedMessage{
			Type:          "participant_disconnected",
			Username:      p.username,
			RoundInFlight: roundInFlight,
		})

		s.mu.Unlock()
	}
}
