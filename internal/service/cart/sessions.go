package cart

import (
	"sync"
	"time"

	"sickbeasts-storefront/internal/cart"
)

// Session is one browser's cart. Store is safe for concurrent use.
type Session struct {
	ID        string
	Store     *cart.Store
	indicator *cart.Indicator
	bridge    *cart.Bridge
	lastSeen  time.Time
}

// AddedToCart reports whether the "added to cart" flag is still raised.
func (s *Session) AddedToCart() bool {
	return s.indicator.Active()
}

func (s *Session) close() {
	s.bridge.Detach()
	s.indicator.Stop()
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	// onExpire runs under mu after an idle session is closed.
	onExpire func(id string)
}

func newSessionRegistry(ttl time.Duration, onExpire func(id string)) *sessionRegistry {
	if onExpire == nil {
		onExpire = func(string) {}
	}
	return &sessionRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// lookup returns a live session and refreshes its idle timer. Expired
// sessions are closed and forgotten.
func (r *sessionRegistry) lookup(id string, now time.Time) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if now.Sub(sess.lastSeen) > r.ttl {
		delete(r.sessions, id)
		sess.close()
		r.onExpire(id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// add stores sess unless a concurrent request registered the same id first,
// in which case the existing session wins and sess is closed.
func (r *sessionRegistry) add(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[sess.ID]; ok {
		sess.close()
		existing.lastSeen = sess.lastSeen
		return existing
	}
	r.sessions[sess.ID] = sess
	return sess
}

func (r *sessionRegistry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.lastSeen) > r.ttl {
			delete(r.sessions, id)
			sess.close()
			r.onExpire(id)
			removed++
		}
	}
	return removed
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		delete(r.sessions, id)
		sess.close()
	}
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
