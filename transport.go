package mysql

import (
	"context"
	"io"
	"time"
)

// Transport is the byte-stream contract the Framer reads and writes
// through (spec.md §6). It erases the difference between a TCP socket, a
// UNIX socket, and an in-memory pipe, replacing the teacher's concrete
// net.Conn parameterization with the single interface named in the Design
// Note "Polymorphism by templated stream type: replace with a single
// erased byte-stream interface."
type Transport interface {
	// ReadSome reads at least one byte into p, blocking until data is
	// available, ctx is done, or the transport is closed.
	ReadSome(ctx context.Context, p []byte) (int, error)
	// WriteAll writes every byte of p, blocking as needed.
	WriteAll(ctx context.Context, p []byte) error
	Close() error
}

// TLSUpgrader is implemented by a Transport that can switch an already
// established plaintext connection to TLS in place, for CLIENT_SSL
// negotiation (spec.md §4.4 step 3).
type TLSUpgrader interface {
	UpgradeTLS(ctx context.Context, serverName string) error
}

// deadlineConn is satisfied by net.Conn (including net.Pipe's halves);
// when the wrapped stream implements it, ioTransport arranges for ctx's
// deadline to actually abort an in-flight Read/Write, instead of only
// being checked between calls.
type deadlineConn interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// ioTransport adapts any io.ReadWriteCloser (a net.Conn, a net.Pipe half,
// ...) to Transport, matching the teacher's own reliance on net.Conn's
// SetDeadline rather than context-aware plumbing deep in the I/O path.
type ioTransport struct {
	rw io.ReadWriteCloser
	dc deadlineConn // non-nil iff rw implements deadlineConn
}

// NewIOTransport wraps rw as a Transport.
func NewIOTransport(rw io.ReadWriteCloser) Transport {
	t := &ioTransport{rw: rw}
	if dc, ok := rw.(deadlineConn); ok {
		t.dc = dc
	}
	return t
}

func (t *ioTransport) applyDeadline(ctx context.Context, setRead, setWrite bool) error {
	if t.dc == nil {
		return nil
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if setRead {
		if err := t.dc.SetReadDeadline(deadline); err != nil {
			return err
		}
	}
	if setWrite {
		if err := t.dc.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return nil
}

func (t *ioTransport) ReadSome(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.applyDeadline(ctx, true, false); err != nil {
		return 0, err
	}
	return t.rw.Read(p)
}

func (t *ioTransport) WriteAll(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.applyDeadline(ctx, false, true); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := t.rw.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *ioTransport) Close() error {
	return t.rw.Close()
}
