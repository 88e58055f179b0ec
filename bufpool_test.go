package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireBufferHasRequestedCapacityAndZeroLength(t *testing.T) {
	buf := acquireBuffer(8192)
	assert.Equal(t, 0, len(buf))
	assert.GreaterOrEqual(t, cap(buf), 8192)
	releaseBuffer(buf)
}

func TestReleaseBufferDropsOversizedBuffers(t *testing.T) {
	huge := make([]byte, 0, maxPooledBufferCap+1)
	releaseBuffer(huge)
	// Not observable from outside sync.Pool directly; this just documents
	// that releasing an oversized buffer does not panic and is a no-op.
}

func TestAcquireBufferReusesPooledCapacity(t *testing.T) {
	buf := acquireBuffer(4096)
	buf = append(buf, []byte("some data")...)
	releaseBuffer(buf)

	reused := acquireBuffer(1024)
	assert.Equal(t, 0, len(reused))
}
