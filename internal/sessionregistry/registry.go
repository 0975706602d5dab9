// Package sessionregistry indexes live Sessions by user and by token (spec
// §4.3), safe for concurrent add/remove/iterate.
package sessionregistry

import (
	"sync"

	"github.com/toeserve/presenced/internal/types"
)

// Registry holds two indexes over the same set of sessions.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[string]map[*Session]struct{} // keyed by User.UUID
	byToken map[string]*Session
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		byUser:  map[string]map[*Session]struct{}{},
		byToken: map[string]*Session{},
	}
}

// Add registers sess under both indexes. sess.User must be non-nil.
func (r *Registry) Add(sess *Session) {
	if sess.User == nil {
		panic("sessionregistry: Add requires a bound user")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[sess.User.UUID]
	if !ok {
		set = map[*Session]struct{}{}
		r.byUser[sess.User.UUID] = set
	}
	set[sess] = struct{}{}

	if sess.Token != "" {
		r.byToken[sess.Token] = sess
	}
}

// Remove drops sess from both indexes. Removing an unknown session is a
// no-op.
func (r *Registry) Remove(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess.User != nil {
		if set, ok := r.byUser[sess.User.UUID]; ok {
			delete(set, sess)
			if len(set) == 0 {
				delete(r.byUser, sess.User.UUID)
			}
		}
	}
	if sess.Token != "" {
		if existing, ok := r.byToken[sess.Token]; ok && existing == sess {
			delete(r.byToken, sess.Token)
		}
	}
}

// GetByUser returns a snapshot of every live session for the given user,
// empty on miss. The returned slice is safe to range over while other
// goroutines add/remove sessions.
func (r *Registry) GetByUser(u *types.User) []*Session {
	if u == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[u.UUID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// HasAnySession reports whether the user has at least one live session.
func (r *Registry) HasAnySession(u *types.User) bool {
	if u == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[u.UUID]) > 0
}

// GetByToken resolves a session by its bound token, or nil on miss.
func (r *Registry) GetByToken(token string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byToken[token]
}

// IterAll returns a snapshot of every live session across all users, for
// fan-out. Taking a snapshot rather than iterating the live maps lets
// concurrent Add/Remove proceed without racing the caller (spec §4.3).
func (r *Registry) IterAll() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byToken))
	for _, set := range r.byUser {
		for s := range set {
			out = append(out, s)
		}
	}
	return out
}
