package mysql

import "context"

// PreparedStatement is a server-side prepared statement bound to the
// Session that created it (spec.md §3 "Prepared statement"). Lifecycle
// framing (COM_STMT_CLOSE/COM_STMT_RESET) grounded on
// ziutek-mymysql/native/command.go's _COM_STMT_CLOSE/_COM_STMT_RESET
// handling.
type PreparedStatement struct {
	session *Session
	id      uint32
	params  []ColumnMetadata
	columns []ColumnMetadata
	closed  bool
}

// NumParams returns the number of bound parameters this statement expects.
func (p *PreparedStatement) NumParams() int { return len(p.params) }

// ParamMetadata returns the server-reported parameter type placeholders.
// MySQL/MariaDB report these as opaque VARCHAR columns; callers should not
// rely on their Logical type to match the value they intend to bind.
func (p *PreparedStatement) ParamMetadata() []ColumnMetadata { return p.params }

// Execute issues COM_STMT_EXECUTE with the given bound parameters and
// returns a streaming binary ResultSet.
func (p *PreparedStatement) Execute(ctx context.Context, params []Param) (*ResultSet, error) {
	if p.closed {
		return nil, ErrSessionClosed
	}
	if len(params) != len(p.params) {
		return nil, newProtocolError(ErrProtocolValue, "expected %d bound parameter(s), got %d", len(p.params), len(params))
	}
	if err := p.session.guardIdle(); err != nil {
		return nil, err
	}
	p.session.framer.ResetSequence()
	body := encodeComStmtExecute(p.id, params)
	if err := p.session.framer.WritePacket(ctx, body); err != nil {
		return nil, err
	}
	rs, err := newResultSet(ctx, p.session, true, p.columns)
	if err != nil {
		return nil, err
	}
	p.session.active = rs
	return rs, nil
}

// Reset issues COM_STMT_RESET, discarding any partially-executed cursor
// and unbound long-data buffers while keeping the statement prepared.
func (p *PreparedStatement) Reset(ctx context.Context) error {
	if p.closed {
		return ErrSessionClosed
	}
	if err := p.session.guardIdle(); err != nil {
		return err
	}
	p.session.framer.ResetSequence()
	if err := p.session.framer.WritePacket(ctx, encodeComStmtReset(p.id)); err != nil {
		return err
	}
	body, err := p.session.framer.ReadPacket(ctx)
	if err != nil {
		return err
	}
	return p.session.expectOK(body)
}

// Close issues COM_STMT_CLOSE. Per spec.md §4.1, the server sends no
// response to this command, so Close is fire-and-forget: a write error is
// still returned, but there is no reply to wait for.
func (p *PreparedStatement) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.session.framer.ResetSequence()
	return p.session.framer.WritePacket(ctx, encodeComStmtClose(p.id))
}
