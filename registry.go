package main

import (
	"crypto/rand"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry is the process-wide table of active sessions, keyed by room
// code. It knows nothing about game rules; it is a keyed store whose
// one side effect is releasing a session's timer on deletion, so a
// leaked callback never fires against a vanished session. State is
// volatile and lost on restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// codeLength keeps room codes short enough to read out loud.
const codeLength = 6

// insert generates a room code not currently present in the table,
// binds it to the session, and stores the entry. Codes are reusable
// once their session is deleted.
func (r *Registry) insert(s *Session) string {
	// Unambiguous alphabet: no 0/O, 1/I/L.
	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, codeLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		if _, exists := r.sessions[code]; exists {
			continue
		}

		s.code = code
		r.sessions[code] = s
		return code
	}
}

// lookup resolves a room code to its session.
func (r *Registry) lookup(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[code]
	return s, ok
}

// remove deletes a session unconditionally and releases its resources.
// Removing an unknown code is a no-op.
func (r *Registry) remove(code string) {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	s.release()
	log.Debug().Str("room", code).Msg("session removed")
}

// snapshot returns the current sessions, for callers that need to scan
// without holding the registry lock.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// count reports the number of active sessions.
func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
