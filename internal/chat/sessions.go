// Package chat hosts the conversational resume assistant. Conversations
// run through an agent runner; session lifetimes are bounded here because
// the in-memory session service grows without limit on its own.
package chat

import (
	"sync"
	"time"
)

// Registry tracks live chat sessions with a TTL and a hard size bound.
// Expired or evicted sessions are reported through the onEvict callback so
// the backing session service can drop its state too.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]*sessionEntry
	onEvict func(userID, sessionID string)
	done    chan struct{}
	once    sync.Once
}

type sessionEntry struct {
	userID   string
	lastSeen time.Time
}

// NewRegistry creates a registry and starts its background sweeper. Call
// Stop when done. onEvict may be nil.
func NewRegistry(ttl time.Duration, maxSize int, onEvict func(userID, sessionID string)) *Registry {
	r := &Registry{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*sessionEntry),
		onEvict: onEvict,
		done:    make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Add registers a session. When the registry is full, the least recently
// used session is evicted to make room.
func (r *Registry) Add(sessionID, userID string) {
	r.mu.Lock()

	var evictID, evictUser string
	if len(r.entries) >= r.maxSize {
		oldest := time.Now()
		for id, e := range r.entries {
			if e.lastSeen.Before(oldest) {
				oldest = e.lastSeen
				evictID = id
				evictUser = e.userID
			}
		}
		delete(r.entries, evictID)
	}

	r.entries[sessionID] = &sessionEntry{userID: userID, lastSeen: time.Now()}
	r.mu.Unlock()

	if evictID != "" && r.onEvict != nil {
		r.onEvict(evictUser, evictID)
	}
}

// Touch refreshes a session's TTL. Returns false when the session is
// unknown or has already expired. An expired entry found here is reported
// through onEvict, same as the sweeper would, so the backing session
// service drops its state too.
func (r *Registry) Touch(sessionID string) bool {
	r.mu.Lock()

	e, ok := r.entries[sessionID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if time.Since(e.lastSeen) > r.ttl {
		delete(r.entries, sessionID)
		userID := e.userID
		r.mu.Unlock()
		if r.onEvict != nil {
			r.onEvict(userID, sessionID)
		}
		return false
	}
	e.lastSeen = time.Now()
	r.mu.Unlock()
	return true
}

// Remove drops a session without invoking the eviction callback.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stop halts the background sweeper. Safe to call more than once.
func (r *Registry) Stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *Registry) sweep() {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.expire()
		}
	}
}

func (r *Registry) expire() {
	r.mu.Lock()
	type evicted struct{ userID, sessionID string }
	var expired []evicted
	for id, e := range r.entries {
		if time.Since(e.lastSeen) > r.ttl {
			expired = append(expired, evicted{e.userID, id})
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	if r.onEvict != nil {
		for _, e := range expired {
			r.onEvict(e.userID, e.sessionID)
		}
	}
}
