package mysql

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAutoOKSession performs a real handshake over a net.Pipe and then
// leaves a background goroutine on the server side that acknowledges
// every subsequent command (COM_RESET_CONNECTION, in practice) with OK,
// standing in for a real server that always accepts a session reset.
func newAutoOKSession(t *testing.T) *Session {
	t.Helper()
	transport, server := newFakeServerPipe(t)
	ctx := withTestTimeout(t)
	scramble := testScramble()

	ready := make(chan struct{})
	go func() {
		server.sendHandshake(ctx, t, scramble, PluginMysqlNativePassword)
		server.readHandshakeResponse(ctx, t)
		server.sendOK(ctx, t, 0)
		close(ready)
		for {
			if _, err := server.framer.ReadPacket(ctx); err != nil {
				return
			}
			if err := server.framer.WritePacket(ctx, encodeOKForTest(0, 0, StatusAutocommit, 0, "")); err != nil {
				return
			}
		}
	}()

	session, err := Connect(ctx, transport, Options{Username: "root", Password: "s3cret"})
	require.NoError(t, err)
	<-ready
	return session
}

func TestPoolAcquireReleaseReusesSession(t *testing.T) {
	var dialCount int64
	pool := NewPool(Config{
		Capacity: 2,
		Dial: func(ctx context.Context) (*Session, error) {
			atomic.AddInt64(&dialCount, 1)
			return newAutoOKSession(t), nil
		},
	})

	ctx := withTestTimeout(t)
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&dialCount))

	pool.Release(ctx, s1, nil)
	assert.Equal(t, 1, pool.Stats().Idle)

	s2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&dialCount), "reacquire should reuse the idle session, not redial")
	assert.Same(t, s1, s2)
	pool.Release(ctx, s2, nil)
}

func TestPoolSaturationTimesOut(t *testing.T) {
	pool := NewPool(Config{
		Capacity: 1,
		Dial: func(ctx context.Context) (*Session, error) {
			return newAutoOKSession(t), nil
		},
	})

	ctx := withTestTimeout(t)
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(shortCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKindPoolTimeout)

	pool.Release(ctx, s1, nil)
}

func TestPoolAcquireUnblocksOnRelease(t *testing.T) {
	pool := NewPool(Config{
		Capacity: 1,
		Dial: func(ctx context.Context) (*Session, error) {
			return newAutoOKSession(t), nil
		},
	})

	ctx := withTestTimeout(t)
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var acquired *Session
	go func() {
		defer wg.Done()
		s, err := pool.Acquire(ctx)
		require.NoError(t, err)
		acquired = s
	}()

	time.Sleep(20 * time.Millisecond)
	pool.Release(ctx, s1, nil)
	wg.Wait()
	assert.NotNil(t, acquired)
	pool.Release(ctx, acquired, nil)
}

func TestPoolReleaseWithUsageErrorDiscardsSession(t *testing.T) {
	pool := NewPool(Config{
		Capacity: 1,
		Dial: func(ctx context.Context) (*Session, error) {
			return newAutoOKSession(t), nil
		},
	})

	ctx := withTestTimeout(t)
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(ctx, s1, ErrSessionClosed)

	assert.Equal(t, 0, pool.Stats().Idle)
	assert.False(t, s1.IsOpen())
}

func TestPoolCloseClosesIdleSessions(t *testing.T) {
	pool := NewPool(Config{
		Capacity: 1,
		Dial: func(ctx context.Context) (*Session, error) {
			return newAutoOKSession(t), nil
		},
	})

	ctx := withTestTimeout(t)
	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(ctx, s1, nil)

	pool.Close()
	assert.False(t, s1.IsOpen())
}
