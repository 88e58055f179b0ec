package mysql

import "sync"

// defaultBufferCap is the initial capacity handed out for a fresh packet
// buffer; buffers grow past this on demand and are trimmed back to it when
// they return to the pool, so one oversized packet doesn't pin a large
// buffer in the pool forever.
const defaultBufferCap = 4096

// maxPooledBufferCap bounds how large a returned buffer is kept at; this is
// the "grow on demand, bounded by max packet size times a reasonable
// multiple" rule from spec.md §3.
const maxPooledBufferCap = 4 * maxFrameBody

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, defaultBufferCap)
		return &buf
	},
}

// acquireBuffer returns a zero-length buffer with at least minCap capacity,
// grounded on the teacher's go/mysql/bufio_pool.go pool-and-reset pattern
// for its write-side buffer, generalized here to also cover the Session's
// growable read buffer (spec.md §3 "buffers are created with the Session
// and grow on demand").
func acquireBuffer(minCap int) []byte {
	p := bufferPool.Get().(*[]byte)
	buf := *p
	if cap(buf) < minCap {
		buf = make([]byte, 0, minCap)
	}
	return buf[:0]
}

// releaseBuffer returns buf to the pool. Oversized buffers are dropped
// instead of pooled so one 16 MiB packet doesn't inflate the pool's steady
// state.
func releaseBuffer(buf []byte) {
	if cap(buf) > maxPooledBufferCap {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}
