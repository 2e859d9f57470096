package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefreshInterval is how often a logged in session renews its access token.
const DefaultRefreshInterval = 60 * time.Second

// Refresher renews the access token. *restclient.Refresher satisfies it and
// shares its single-flight group with the 401 handler.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type TaskOption func(*RefreshTask)

func WithInterval(d time.Duration) TaskOption {
	return func(t *RefreshTask) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithOnExpired sets the callback run after a failed refresh has logged the
// user out, typically a redirect to the login route.
func WithOnExpired(fn func()) TaskOption {
	return func(t *RefreshTask) {
		t.onExpired = fn
	}
}

func WithTaskLogger(logger zerolog.Logger) TaskOption {
	return func(t *RefreshTask) {
		t.logger = logger
	}
}

// RefreshTask periodically renews the access token while a session is active.
// At most one loop runs at a time.
type RefreshTask struct {
	refresher Refresher
	container *Container
	interval  time.Duration
	onExpired func()
	logger    zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefreshTask(refresher Refresher, container *Container, opts ...TaskOption) *RefreshTask {
	t := &RefreshTask{
		refresher: refresher,
		container: container,
		interval:  DefaultRefreshInterval,
		onExpired: func() {},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the loop. It reports false, doing nothing, when already running.
func (t *RefreshTask) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.loop(ctx, done)

	t.logger.Debug().Dur("interval", t.interval).Msg("refresh task started")
	return true
}

// Stop ends the loop and waits for it to exit. Safe to call when not running.
func (t *RefreshTask) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Debug().Msg("refresh task stopped")
}

func (t *RefreshTask) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *RefreshTask) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := t.refresher.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.expire(done, err)
			return
		}
		t.logger.Debug().Msg("session refreshed")
	}
}

// expire logs the session out after a failed refresh. The task deregisters
// itself first so onExpired may call Start or Stop.
func (t *RefreshTask) expire(done chan struct{}, err error) {
	t.mu.Lock()
	if t.done == done {
		t.cancel()
		t.cancel, t.done = nil, nil
	}
	t.mu.Unlock()

	t.logger.Warn().Err(err).Msg("session expired")
	t.container.Dispatch(Logout{})
	t.onExpired()
}
