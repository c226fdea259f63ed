package collabauth

import (
	"context"
	"sync"
)

// Session is an immutable snapshot of the process-wide authentication
// state. Loading is true only while the startup resolution is in flight.
type Session struct {
	IsAuthenticated bool
	CurrentUser     *UserRecord
	Loading         bool
}

// sessionResolver is the slice of Service the SessionContext depends on.
type sessionResolver interface {
	ResolveSession(ctx context.Context) (bool, *UserRecord, error)
	Logout(ctx context.Context) error
}

// SessionContext owns the process-wide session. Consumers read snapshots
// via Current or subscribe for change notification; every mutation
// notifies with the whole snapshot (no partial updates).
type SessionContext struct {
	mu       sync.Mutex
	svc      sessionResolver
	session  Session
	resolved bool
	subs     map[int]func(Session)
	nextSub  int
}

// NewSessionContext builds an unresolved context: loading, unauthenticated,
// no user. Call Resolve once at startup.
func NewSessionContext(svc sessionResolver) *SessionContext {
	return &SessionContext{
		svc:     svc,
		session: Session{Loading: true},
		subs:    make(map[int]func(Session)),
	}
}

// Resolve restores any persisted session. It runs the underlying
// resolution at most once; later calls return immediately. A resolution
// failure leaves the context unauthenticated rather than propagating: at
// startup there is no one to surface the error to, and an unreadable
// credential is equivalent to none.
func (c *SessionContext) Resolve(ctx context.Context) {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return
	}
	c.resolved = true
	c.mu.Unlock()

	ok, user, err := c.svc.ResolveSession(ctx)
	if err != nil {
		ok, user = false, nil
	}

	c.set(Session{IsAuthenticated: ok, CurrentUser: user})
}

// Current returns the latest snapshot.
func (c *SessionContext) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Login marks the user as authenticated. The caller is expected to have
// already persisted credentials through the Service; Login only mutates
// in-memory state.
func (c *SessionContext) Login(user *UserRecord) {
	c.set(Session{IsAuthenticated: true, CurrentUser: user})
}

// Logout clears persisted credentials, then resets the in-memory state.
// When the underlying clear fails the state is left untouched and the
// error is returned to the caller.
func (c *SessionContext) Logout(ctx context.Context) error {
	if err := c.svc.Logout(ctx); err != nil {
		return err
	}
	c.set(Session{})
	return nil
}

// Subscribe registers a listener invoked with the full snapshot after
// every state change. The returned function cancels the subscription.
func (c *SessionContext) Subscribe(fn func(Session)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// set replaces the snapshot and notifies subscribers outside the lock.
func (c *SessionContext) set(s Session) {
	c.mu.Lock()
	c.session = s
	listeners := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
