package mysql

import (
	"context"
	"io"
)

// resultSetState is the resultset reader's state machine (spec.md §4.4
// "Resultset reader": Reading-Metadata / Reading-Rows / Complete).
type resultSetState int

const (
	stateReadingMetadata resultSetState = iota
	stateReadingRows
	stateComplete
)

// ResultSet streams the rows of a single COM_QUERY/COM_STMT_EXECUTE
// response. Grounded on spec.md §4.4 directly; the OK-vs-EOF
// discrimination under CLIENT_DEPRECATE_EOF is cross-checked against the
// teacher's go/mysql/encoding.go packet-discrimination comments. ReadRow
// follows the database/sql/driver.Rows.Next convention of signaling
// exhaustion with io.EOF rather than a bespoke sentinel.
type ResultSet struct {
	session  *Session
	binary   bool
	state    resultSetState
	columns  []ColumnMetadata
	lastOK   *okInfo
	hasMore  bool // STATUS_MORE_RESULTS_EXISTS seen on the terminating OK/EOF
}

// Columns returns the resultset's column metadata, valid once the
// metadata phase has completed (always true by the time newResultSet
// returns).
func (rs *ResultSet) Columns() []ColumnMetadata { return rs.columns }

// LastOK returns the OK-packet fields (affected rows, last insert id,
// status, warnings) from the terminating OK packet, or nil if the
// resultset hasn't finished or produced no rows at all (a bare OK
// response to e.g. an UPDATE has no column phase and lastOK is set
// directly by newResultSet in that case).
func (rs *ResultSet) LastOK() *okInfo { return rs.lastOK }

func (rs *ResultSet) drained() bool { return rs.state == stateComplete }

// HasMore reports whether another resultset follows this one (a
// multi-statement COM_QUERY response, spec.md §4.4).
func (rs *ResultSet) HasMore() bool { return rs.drained() && rs.hasMore }

// newResultSet reads the metadata phase of a query response: either an
// immediate OK/ERR (no rows), or a column count followed by column
// definitions and an optional legacy EOF. If presetColumns is non-nil
// (a prepared statement's bound execution), the column-definition packets
// are still read off the wire (the server always sends them) but the
// caller-supplied metadata is trusted for row decoding, since a bound
// execution's shape does not change between calls.
func newResultSet(ctx context.Context, s *Session, binary bool, presetColumns []ColumnMetadata) (*ResultSet, error) {
	rs := &ResultSet{session: s, binary: binary, state: stateReadingMetadata}

	body, err := s.framer.ReadPacket(ctx)
	if err != nil {
		return nil, err
	}
	switch classifyPacket(body, s.capabilities) {
	case packetOK:
		ok, err := decodeOK(body)
		if err != nil {
			return nil, err
		}
		rs.lastOK = ok
		rs.state = stateComplete
		rs.hasMore = ok.StatusFlags&StatusMoreResultsExists != 0
		return rs, nil
	case packetERR:
		sqlErr, err := decodeERR(body)
		if err != nil {
			return nil, err
		}
		return nil, sqlErr
	}

	r := newByteReader(body)
	numCols, err := r.readNotNullLenEncInt()
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnMetadata, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		body, err := s.framer.ReadPacket(ctx)
		if err != nil {
			return nil, err
		}
		cm, err := decodeColumnDefinition41(body)
		if err != nil {
			return nil, err
		}
		columns = append(columns, *cm)
	}
	if s.capabilities&CapDeprecateEOF == 0 {
		if _, err := s.framer.ReadPacket(ctx); err != nil { // legacy EOF
			return nil, err
		}
	}
	if presetColumns != nil {
		rs.columns = presetColumns
	} else {
		rs.columns = columns
	}
	rs.state = stateReadingRows
	return rs, nil
}

// ReadRow reads the next row, returning io.EOF once the resultset is
// exhausted. Callers must keep calling ReadRow (or ReadSomeRows) until it
// returns io.EOF before issuing another command on the Session (spec.md
// §3's invariant enforced by Session.guardIdle via ErrSessionBusy).
func (rs *ResultSet) ReadRow(ctx context.Context) ([]FieldView, error) {
	if rs.state == stateComplete {
		return nil, io.EOF
	}
	body, err := rs.session.framer.ReadPacket(ctx)
	if err != nil {
		return nil, err
	}
	switch classifyPacket(body, rs.session.capabilities) {
	case packetOK:
		ok, err := decodeOK(body)
		if err != nil {
			return nil, err
		}
		rs.lastOK = ok
		rs.state = stateComplete
		rs.hasMore = ok.StatusFlags&StatusMoreResultsExists != 0
		return nil, io.EOF
	case packetEOF:
		info, err := decodeEOF(body)
		if err != nil {
			return nil, err
		}
		rs.state = stateComplete
		rs.hasMore = info.StatusFlags&StatusMoreResultsExists != 0
		return nil, io.EOF
	case packetERR:
		sqlErr, err := decodeERR(body)
		if err != nil {
			return nil, err
		}
		rs.state = stateComplete
		return nil, sqlErr
	}

	if rs.binary {
		return decodeBinaryRow(body, rs.columns)
	}
	return decodeTextRow(body, rs.columns)
}

// ReadSomeRows reads up to max rows, stopping early on exhaustion (without
// treating io.EOF as an error) or on a decode failure.
func (rs *ResultSet) ReadSomeRows(ctx context.Context, max int) ([][]FieldView, error) {
	rows := make([][]FieldView, 0, max)
	for len(rows) < max {
		row, err := rs.ReadRow(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NextResultSet advances to the next resultset of a multi-statement
// COM_QUERY response. It must only be called once HasMore reports true.
func (rs *ResultSet) NextResultSet(ctx context.Context) (*ResultSet, error) {
	if !rs.HasMore() {
		return nil, newProtocolError(ErrProtocolValue, "no further resultset available")
	}
	next, err := newResultSet(ctx, rs.session, rs.binary, nil)
	if err != nil {
		return nil, err
	}
	rs.session.active = next
	return next, nil
}
