package auth

import (
	"context"
	"sync"
	"time"

	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

// DefaultCheckInterval is how often the watcher looks at the token.
const DefaultCheckInterval = 60 * time.Second

// ExpirySession is the part of *session.Store the watcher uses.
type ExpirySession interface {
	LogoutIfExpired() bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the check interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnExpired registers a callback fired after an expired session was
// cleared. It is a notice for the user, not an error.
func WithOnExpired(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onExpired = fn
	}
}

// Watcher clears the session once its bearer token expires.
type Watcher struct {
	session   ExpirySession
	interval  time.Duration
	onExpired func()

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a Watcher. Call Start to begin checking.
func NewWatcher(s ExpirySession, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		session:  s,
		interval: DefaultCheckInterval,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Interval returns the configured check interval.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Start checks on every tick until ctx is cancelled or Stop is called. It
// blocks; run it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Stop ends Start. Calling it more than once is harmless.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Check clears the session if it holds an expired token and reports whether
// it did. A session without a token is left alone.
func (w *Watcher) Check() bool {
	if !w.session.LogoutIfExpired() {
		return false
	}

	logging.Audit(logging.AuditEvent{Action: "token_expired", Outcome: "cleared"})
	logging.Warn("Auth", "Token expired, session cleared")

	if w.onExpired != nil {
		w.onExpired()
	}
	return true
}
