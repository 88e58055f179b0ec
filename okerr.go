package mysql

// OK and ERR packet decoding. The ERR packet's (number, sqlstate, message)
// shape is grounded on the teacher's go/mysql/sql_error.go SQLError type.

// okInfo is the decoded body of an OK packet (spec.md §4.4's "OK/ERR
// handling", §3's "Prepared statement" affected-rows fields).
type okInfo struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  uint16
	Warnings     uint16
	Info         string
}

// packetKind classifies the first byte of a generic-response packet.
type packetKind int

const (
	packetOK packetKind = iota
	packetERR
	packetEOF
	packetOther
)

func classifyPacket(body []byte, capabilities uint32) packetKind {
	if len(body) == 0 {
		return packetOther
	}
	switch body[0] {
	case 0x00:
		return packetOK
	case 0xff:
		return packetERR
	case 0xfe:
		// Only a legacy EOF marker when short enough and the server isn't
		// using CLIENT_DEPRECATE_EOF; otherwise 0xfe is a valid lenenc
		// integer first byte within e.g. a long column-count packet, so
		// this check is only meaningful where a 3-way OK/ERR/EOF
		// discrimination is actually expected (spec.md §4.1's packet
		// discrimination rule).
		if capabilities&CapDeprecateEOF == 0 && len(body) < 9 {
			return packetEOF
		}
		return packetOther
	default:
		return packetOther
	}
}

// decodeOK parses an OK packet body (the leading 0x00/0xfe marker byte
// must already be consumed by the caller's classification step, so this
// takes the full body and skips the first byte itself).
func decodeOK(body []byte) (*okInfo, error) {
	r := newByteReader(body)
	if _, err := r.readByte(); err != nil { // marker
		return nil, err
	}
	affected, err := r.readNotNullLenEncInt()
	if err != nil {
		return nil, err
	}
	lastID, err := r.readNotNullLenEncInt()
	if err != nil {
		return nil, err
	}
	status, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	warnings, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	info := ""
	if r.remaining() > 0 {
		info = string(r.readEOFString())
	}
	return &okInfo{
		AffectedRows: affected,
		LastInsertID: lastID,
		StatusFlags:  status,
		Warnings:     warnings,
		Info:         info,
	}, nil
}

// decodeERR parses an ERR packet body into a *SQLError.
func decodeERR(body []byte) (*SQLError, error) {
	r := newByteReader(body)
	if _, err := r.readByte(); err != nil { // marker 0xff
		return nil, err
	}
	num, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	state := SSUnknownSQLState
	if r.remaining() > 0 && r.buf[r.pos] == '#' {
		marker, err := r.readBytes(6)
		if err != nil {
			return nil, err
		}
		state = string(marker[1:])
	}
	msg := string(r.readEOFString())
	return &SQLError{Num: int(num), State: state, Message: msg}, nil
}

// eofInfo is the decoded body of a legacy EOF packet (only meaningful when
// CLIENT_DEPRECATE_EOF is not negotiated).
type eofInfo struct {
	Warnings    uint16
	StatusFlags uint16
}

func decodeEOF(body []byte) (*eofInfo, error) {
	r := newByteReader(body)
	if _, err := r.readByte(); err != nil { // marker 0xfe
		return nil, err
	}
	warnings, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	status, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	return &eofInfo{Warnings: warnings, StatusFlags: status}, nil
}
