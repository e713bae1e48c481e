package main

import "time"

// Messages coming from clients
type clientMessage struct {
	Type     string `json:"type"`               // "create", "join", "start", "answer", "advance", "resume", "abandon"
	GameID   int64  `json:"game_id,omitempty"`  // create
	Room     string `json:"room,omitempty"`     // everything except create
	Username string `json:"username,omitempty"` // join
	Text     string `json:"text,omitempty"`     // answer
}

// SessionCreatedMessage is sent to the creating host only.
type SessionCreatedMessage struct {
	Type string `json:"type"` // "session_created"
	Room string `json:"room"`
}

// JoinedMessage acknowledges a successful join to the joining party.
type JoinedMessage struct {
	Type     string `json:"type"` // "joined"
	Room     string `json:"room"`
	Username string `json:"username"`
}

// RosterMessage is sent to the host only; other participants are not
// informed of the roster.
type RosterMessage struct {
	Type      string   `json:"type"` // "roster"
	Usernames []string `json:"usernames"`
}

// SessionStartingMessage is broadcast when the host starts the session.
type SessionStartingMessage struct {
	Type  string `json:"type"` // "session_starting"
	Title string `json:"title"`
	Songs int    `json:"songs"`
}

// RoundBeginMessage is broadcast at the start of each attempt.
type RoundBeginMessage struct {
	Type     string    `json:"type"`       // "round_begin"
	Song     int       `json:"song"`       // 1-based song number
	Attempt  int       `json:"attempt"`    // 1-based attempt number
	Audio    string    `json:"audio"`      // audio-preview locator
	Snippet  int64     `json:"snippet_ms"` // snippet duration in milliseconds
	Deadline time.Time `json:"deadline"`   // answer-window deadline
}

// CorrectAnswerMessage is broadcast when a participant wins the song.
type CorrectAnswerMessage struct {
	Type     string         `json:"type"` // "correct_answer"
	Username string         `json:"username"`
	Answer   string         `json:"answer"`
	Scores   map[string]int `json:"scores"`
}

// NoCorrectAnswerMessage is broadcast when the escalation schedule is
// exhausted without a correct answer. The scheduler then waits for the
// host to advance.
type NoCorrectAnswerMessage struct {
	Type string `json:"type"` // "no_correct_answer"
	Song int    `json:"song"`
}

// SessionPausedMessage is broadcast when a participant disconnects
// mid-round.
type SessionPausedMessage struct {
	Type     string `json:"type"` // "session_paused"
	Reason   string `json:"reason"`
	Username string `json:"username"`
}

// SessionResumedMessage is broadcast when the host resumes a paused
// session; the current attempt gets a fresh answer window.
type SessionResumedMessage struct {
	Type     string    `json:"type"` // "session_resumed"
	Deadline time.Time `json:"deadline"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// SessionEndedMessage carries the final top-three leaderboard.
type SessionEndedMessage struct {
	Type        string             `json:"type"` // "session_ended"
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantDisconnectedMessage is sent to the host only.
type ParticipantDisconnectedMessage struct {
	Type          string `json:"type"` // "participant_disconnected"
	Username      string `json:"username"`
	RoundInFlight bool   `json:"round_in_flight"`
}

// RejectedMessage is sent to the offending client only.
type RejectedMessage struct {
	Type   string `json:"type"` // "rejected"
	Op     string `json:"op"`
	Reason string `json:"reason"`
}
