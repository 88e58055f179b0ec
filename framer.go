package mysql

import (
	"context"
)

// Framer implements the packet framing layer (spec.md §4.2): u24 length +
// u8 sequence number header, splitting payloads >= maxFrameBody across
// multiple frames on write and joining them back together on read.
// Grounded on ziutek-mymysql/native/packet.go's pktReader/pktWriter
// (readHeader's sequence check, pw.write's split-on-0xffffff loop),
// rewritten to return errors instead of panicking, and to read/write
// through the Transport interface instead of a concrete net.Conn.
type Framer struct {
	t   Transport
	seq uint8

	readBuf []byte // raw bytes read from t but not yet consumed
	readPos int
}

// NewFramer wraps t. The sequence counter starts at 0, matching the start
// of a fresh connection (spec.md §4.2).
func NewFramer(t Transport) *Framer {
	return &Framer{t: t, readBuf: acquireBuffer(defaultBufferCap)}
}

// ResetSequence sets the sequence counter back to 0, called at the start
// of every new command (spec.md §4.4).
func (f *Framer) ResetSequence() {
	f.seq = 0
}

// nextExpectedSeq is exposed for tests asserting the sequence-mismatch
// error path.
func (f *Framer) nextExpectedSeq() uint8 {
	return f.seq
}

func (f *Framer) fillAtLeast(ctx context.Context, n int) error {
	for len(f.readBuf)-f.readPos < n {
		if f.readPos > 0 {
			copy(f.readBuf, f.readBuf[f.readPos:])
			f.readBuf = f.readBuf[:len(f.readBuf)-f.readPos]
			f.readPos = 0
		}
		if cap(f.readBuf)-len(f.readBuf) == 0 {
			grown := acquireBuffer(cap(f.readBuf) * 2)
			grown = append(grown, f.readBuf...)
			releaseBuffer(f.readBuf)
			f.readBuf = grown
		}
		room := f.readBuf[len(f.readBuf):cap(f.readBuf)]
		read, err := f.t.ReadSome(ctx, room)
		if err != nil {
			return err
		}
		f.readBuf = f.readBuf[:len(f.readBuf)+read]
	}
	return nil
}

func (f *Framer) consume(n int) []byte {
	b := f.readBuf[f.readPos : f.readPos+n]
	f.readPos += n
	return b
}

// readOneFrame reads a single length-prefixed frame's body, validating its
// sequence number against f.seq and advancing f.seq on success.
func (f *Framer) readOneFrame(ctx context.Context) (body []byte, frameLen int, err error) {
	if err := f.fillAtLeast(ctx, 4); err != nil {
		return nil, 0, err
	}
	hdr := f.consume(4)
	length := uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16
	seq := hdr[3]
	if seq != f.seq {
		return nil, 0, newProtocolError(ErrSequenceMismatch, "expected sequence %d, got %d", f.seq, seq)
	}
	f.seq++
	if err := f.fillAtLeast(ctx, int(length)); err != nil {
		return nil, 0, err
	}
	return f.consume(int(length)), int(length), nil
}

// ReadPacket reads one logical packet, joining consecutive maxFrameBody
// frames per spec.md §4.2's splitting rule. The returned slice is only
// valid until the next call to ReadPacket.
func (f *Framer) ReadPacket(ctx context.Context) ([]byte, error) {
	body, frameLen, err := f.readOneFrame(ctx)
	if err != nil {
		return nil, err
	}
	if frameLen < maxFrameBody {
		return body, nil
	}
	// Payload continues in one or more subsequent frames; copy since the
	// underlying read buffer will be overwritten as we keep reading.
	joined := append([]byte(nil), body...)
	for frameLen == maxFrameBody {
		body, frameLen, err = f.readOneFrame(ctx)
		if err != nil {
			return nil, err
		}
		joined = append(joined, body...)
	}
	return joined, nil
}

// WritePacket writes body as one or more frames, splitting at maxFrameBody
// boundaries. A body whose length is an exact multiple of maxFrameBody
// (including zero) always ends with a zero-length terminating frame, per
// spec.md §4.2.
func (f *Framer) WritePacket(ctx context.Context, body []byte) error {
	out := acquireBuffer(len(body) + 4)
	defer releaseBuffer(out)

	for {
		chunk := body
		if len(chunk) > maxFrameBody {
			chunk = chunk[:maxFrameBody]
		}
		out = out[:0]
		out = append(out, byte(len(chunk)), byte(len(chunk)>>8), byte(len(chunk)>>16), f.seq)
		out = append(out, chunk...)
		if err := f.t.WriteAll(ctx, out); err != nil {
			return err
		}
		f.seq++
		body = body[len(chunk):]
		if len(chunk) < maxFrameBody {
			return nil
		}
	}
}
