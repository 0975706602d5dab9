package sessionregistry

import (
	"time"

	"github.com/toeserve/presenced/internal/types"
)

// outputBufferSize bounds how many undelivered events a slow session can
// accumulate before Send starts dropping them.
const outputBufferSize = 256

// queueOutTimeout mirrors the teacher's send-without-blocking-the-core
// discipline: a session that can't take an event within this window is
// treated as stalled for that one event rather than stalling the caller.
const queueOutTimeout = 50 * time.Millisecond

// Session is a live connection bound to a User once login completes. An
// adapter creates it, a notify.Core login call binds it to a user and
// registers it, and OnConnectionLost removes it from the registry.
type Session struct {
	UUID  string
	Token string
	User  *types.User

	out chan Event
}

// New creates a Session with no user bound yet (state Fresh in spec §4.9).
func New(uuid string) *Session {
	return &Session{
		UUID: uuid,
		out:  make(chan Event, outputBufferSize),
	}
}

// Out exposes the event channel for an adapter's writer loop to drain.
func (s *Session) Out() <-chan Event {
	return s.out
}

// Send delivers ev to the session's outbound queue without blocking the
// caller beyond queueOutTimeout. A full queue means the event is dropped for
// that one session; this is the same trade-off the teacher's session write
// path makes rather than stalling the whole fan-out on one stuck client.
func (s *Session) Send(ev Event) {
	select {
	case s.out <- ev:
	case <-time.After(queueOutTimeout):
	}
}

// Close shuts down the outbound channel; an adapter's writer loop should
// treat the closed channel as "no more events, finish up."
func (s *Session) Close() {
	close(s.out)
}
