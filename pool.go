package mysql

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"
)

// Pool is a bounded pool of Sessions (spec.md §4.5). Directly adapted from
// teacher go/pools/resource_pool.go's Get/Put/SetCapacity shape and State
// struct, generalized from a single "available/not" resource state to the
// four-state per-session model spec.md §4.5 requires, and from a raw
// channel+mutex wait to golang.org/x/sync/semaphore.Weighted.Acquire(ctx, 1)
// for the bounded-wait-with-timeout primitive (spec.md §4.5/§5's
// "condition variable... wakes at most one waiter").
type Pool struct {
	sem *semaphore.Weighted

	mu       sync.Mutex
	dial     DialFunc
	capacity int64
	created  int64
	idle     []*pooledSession
	closed   bool

	setupRetryCount int
	retryBackoff    time.Duration
	idleWaitTimeout time.Duration
}

// DialFunc opens a fresh, already-authenticated Session.
type DialFunc func(ctx context.Context) (*Session, error)

// Config configures a new Pool.
type Config struct {
	Capacity int
	Dial     DialFunc

	// InitialSize pre-warms the pool at construction time by dialing this
	// many Sessions into the idle list up front (spec.md §4.5
	// "initial_size"), so early Acquire calls don't pay for a cold dial.
	// Clamped to Capacity. Zero means the pool starts empty.
	InitialSize int

	// SetupRetryCount bounds how many extra dial attempts Acquire makes
	// after an initial Uninitialized setup failure before surfacing the
	// dial error to the caller (spec.md §4.5 step 3: "retry up to
	// setup_retry_count"). Defaults to 2 if zero.
	SetupRetryCount int

	// RetryBackoff is the fixed delay between setup retries (spec.md
	// §4.5's fixed retry_backoff, not exponential). Defaults to 1s
	// if zero.
	RetryBackoff time.Duration

	// IdleWaitTimeout bounds how long Acquire waits for a Session when
	// the caller's ctx carries no deadline of its own (spec.md §4.5
	// "idle_wait_timeout", owned by the pool). Defaults to 10s if zero.
	IdleWaitTimeout time.Duration
}

// sessionState mirrors spec.md §4.5's per-session state model.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateIdle
	stateInUse
	statePendingReset
)

type pooledSession struct {
	session *Session
	state   sessionState
}

// NewPool constructs a Pool with the given Config, pre-warming it with up
// to Config.InitialSize idle Sessions (spec.md §4.5's "initial_size"). A
// pre-warm dial failure is logged and stops further pre-warming; it does
// not fail construction, since Acquire will retry the dial on demand.
func NewPool(cfg Config) *Pool {
	retryCount := cfg.SetupRetryCount
	if retryCount <= 0 {
		retryCount = 2
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	idleWait := cfg.IdleWaitTimeout
	if idleWait <= 0 {
		idleWait = 10 * time.Second
	}
	p := &Pool{
		sem:             semaphore.NewWeighted(int64(cfg.Capacity)),
		dial:            cfg.Dial,
		capacity:        int64(cfg.Capacity),
		idle:            make([]*pooledSession, 0, cfg.Capacity),
		setupRetryCount: retryCount,
		retryBackoff:    backoff,
		idleWaitTimeout: idleWait,
	}

	initialSize := cfg.InitialSize
	if initialSize > cfg.Capacity {
		initialSize = cfg.Capacity
	}
	for i := 0; i < initialSize; i++ {
		session, err := p.dialWithRetry(context.Background())
		if err != nil {
			glog.Warningf("mysql: pool pre-warm stopped after %d/%d sessions: %v", i, initialSize, err)
			break
		}
		p.created++
		p.idle = append(p.idle, &pooledSession{session: session, state: stateIdle})
	}
	return p
}

// Acquire blocks until a Session is available, ctx is done, or the pool is
// closed. If ctx carries no deadline of its own, Acquire bounds the wait
// with the pool's own idleWaitTimeout (spec.md §4.5 "idle_wait_timeout").
// On a timeout it returns an error wrapping ErrKindPoolTimeout, or
// ErrKindCancelled if ctx was simply canceled.
//
// An idle Session is liveness-checked with PING before being handed out
// (spec.md §4.5 step 3: "Idle: send PING. On failure, close and treat as
// Uninitialized with retry"); a failed PING discards the session and
// falls through to dial a replacement.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.idleWaitTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, newProtocolError(ErrPoolTimeout, "timed out waiting for a pooled session")
			}
			return nil, newProtocolError(ErrCancelled, "acquire canceled: %v", err)
		}
		// waitCtx expired on the pool's own idleWaitTimeout, not the caller's ctx.
		return nil, newProtocolError(ErrPoolTimeout, "timed out waiting for a pooled session")
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.sem.Release(1)
			return nil, ErrSessionClosed
		}
		n := len(p.idle)
		if n == 0 {
			p.mu.Unlock()
			break
		}
		ps := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()

		if err := ps.session.Ping(ctx); err != nil {
			glog.Warningf("mysql: session %s failed idle liveness PING, discarding: %v", ps.session.TraceID, err)
			ps.session.Close()
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			continue
		}
		ps.state = stateInUse
		return ps.session, nil
	}

	session, err := p.dialWithRetry(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()

	return session, nil
}

// dialWithRetry calls p.dial, retrying up to setupRetryCount times with a
// fixed backoff (spec.md §4.5 step 3: "retry up to setup_retry_count")
// before surfacing the last dial error to the caller.
func (p *Pool) dialWithRetry(ctx context.Context) (*Session, error) {
	var lastErr error
	for attempt := 0; attempt <= p.setupRetryCount; attempt++ {
		session, err := p.dial(ctx)
		if err == nil {
			return session, nil
		}
		lastErr = err
		if attempt == p.setupRetryCount {
			glog.Warningf("mysql: pool session setup failed after %d attempts, giving up: %v", attempt+1, err)
			break
		}
		glog.Warningf("mysql: pool session setup failed, retrying in %s: %v", p.retryBackoff, err)

		timer := time.NewTimer(p.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// Release returns a Session to the pool. If usageErr is non-nil, the
// Session is assumed unusable (a protocol error mid-command, a closed
// transport, ...) and is discarded rather than recycled; the pool's
// capacity for new sessions is preserved because Acquire dials a
// replacement lazily on demand. Otherwise the Session is reset
// (COM_RESET_CONNECTION, the PendingReset state) before being returned to
// the idle list, so the next Acquire hands out a session with clean
// session state.
func (p *Pool) Release(ctx context.Context, session *Session, usageErr error) {
	defer p.sem.Release(1)

	if usageErr != nil || !session.IsOpen() {
		session.Close()
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return
	}

	ps := &pooledSession{session: session, state: statePendingReset}
	if err := session.ResetConnection(ctx); err != nil {
		glog.Warningf("mysql: session %s failed COM_RESET_CONNECTION on release, discarding: %v", session.TraceID, err)
		session.Close()
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return
	}
	ps.state = stateIdle

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		session.Close()
		p.created--
		return
	}
	p.idle = append(p.idle, ps)
}

// Close closes every idle Session and marks the pool closed; Sessions
// currently checked out are closed as they're Released.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, ps := range idle {
		ps.session.Close()
	}
}

// State snapshots pool occupancy, matching the shape of the teacher's
// go/pools/resource_pool.go State struct.
type State struct {
	Capacity int
	Created  int
	Idle     int
}

// Stats returns a point-in-time snapshot of the pool's occupancy.
func (p *Pool) Stats() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Capacity: int(p.capacity),
		Created:  int(p.created),
		Idle:     len(p.idle),
	}
}
