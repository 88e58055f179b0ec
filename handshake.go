package mysql

// This file decodes/encodes the handshake-phase packets (spec.md §4.1,
// §4.4). Field order and semantics are grounded on
// ziutek-mymysql/native/init.go's Conn.init()/readInitPacket, cross-checked
// against spec.md §4.1's tables.

// HandshakeV10 is the server's initial greeting.
type HandshakeV10 struct {
	ProtocolVersion   uint8
	ServerVersion     string
	ConnectionID      uint32
	AuthPluginData    []byte // full scramble, both parts joined
	Capabilities      uint32
	CharsetID         uint8
	StatusFlags       uint16
	AuthPluginName    string
}

// decodeHandshakeV10 parses a server greeting packet body.
func decodeHandshakeV10(body []byte) (*HandshakeV10, error) {
	r := newByteReader(body)
	h := &HandshakeV10{}

	pv, err := r.readByte()
	if err != nil {
		return nil, err
	}
	h.ProtocolVersion = pv
	if pv != 10 {
		return nil, newProtocolError(ErrServerUnsupported, "unsupported protocol version %d", pv)
	}

	version, err := r.readNullTerminatedString()
	if err != nil {
		return nil, err
	}
	h.ServerVersion = string(version)

	connID, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	h.ConnectionID = connID

	authPart1, err := r.readBytes(8)
	if err != nil {
		return nil, err
	}
	if _, err := r.readByte(); err != nil { // filler
		return nil, err
	}

	capLow, err := r.readUint16()
	if err != nil {
		return nil, err
	}

	if r.remaining() > 0 {
		charset, err := r.readByte()
		if err != nil {
			return nil, err
		}
		h.CharsetID = charset

		status, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		h.StatusFlags = status

		capHigh, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		h.Capabilities = uint32(capLow) | uint32(capHigh)<<16

		authDataLen, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if _, err := r.readBytes(10); err != nil { // reserved
			return nil, err
		}

		authPluginData := append([]byte(nil), authPart1...)
		if h.Capabilities&CapSecureConnection != 0 {
			n := int(authDataLen) - 8
			if n < 13 {
				n = 13
			}
			authPart2, err := r.readBytes(n)
			if err != nil {
				return nil, err
			}
			// authPart2 includes a trailing NUL; drop it.
			if len(authPart2) > 0 && authPart2[len(authPart2)-1] == 0 {
				authPart2 = authPart2[:len(authPart2)-1]
			}
			authPluginData = append(authPluginData, authPart2...)
		}
		h.AuthPluginData = authPluginData

		if h.Capabilities&CapPluginAuth != 0 {
			name, err := r.readNullTerminatedString()
			if err != nil {
				return nil, err
			}
			h.AuthPluginName = string(name)
		}
	} else {
		h.Capabilities = uint32(capLow)
		h.AuthPluginData = append([]byte(nil), authPart1...)
	}

	return h, nil
}

// HandshakeResponse41 is the client's reply to a HandshakeV10.
type HandshakeResponse41 struct {
	Capabilities   uint32
	MaxPacketSize  uint32
	CharsetID      uint8
	Username       string
	AuthResponse   []byte
	Database       string
	AuthPluginName string
	ConnectAttrs   map[string]string
}

func (h *HandshakeResponse41) encode() []byte {
	w := newByteWriter(128)
	w.writeUint32(h.Capabilities)
	w.writeUint32(h.MaxPacketSize)
	w.writeByte(h.CharsetID)
	w.writeZeros(23)
	w.writeNullTerminatedString([]byte(h.Username))

	if h.Capabilities&CapPluginAuthLenencClientData != 0 {
		w.writeLenEncString(h.AuthResponse)
	} else if h.Capabilities&CapSecureConnection != 0 {
		w.writeByte(byte(len(h.AuthResponse)))
		w.writeBytes(h.AuthResponse)
	} else {
		w.writeNullTerminatedString(h.AuthResponse)
	}

	if h.Capabilities&CapConnectWithDB != 0 {
		w.writeNullTerminatedString([]byte(h.Database))
	}
	if h.Capabilities&CapPluginAuth != 0 {
		w.writeNullTerminatedString([]byte(h.AuthPluginName))
	}
	if h.Capabilities&CapConnectAttrs != 0 {
		attrs := newByteWriter(32)
		for k, v := range h.ConnectAttrs {
			attrs.writeLenEncString([]byte(k))
			attrs.writeLenEncString([]byte(v))
		}
		w.writeLenEncInt(uint64(len(attrs.bytes())))
		w.writeBytes(attrs.bytes())
	}
	return w.bytes()
}

// SSLRequest is the truncated handshake response sent before upgrading to
// TLS (spec.md §4.4 step 3), identical to HandshakeResponse41's fixed
// header without the username/auth/database trailer.
type SSLRequest struct {
	Capabilities  uint32
	MaxPacketSize uint32
	CharsetID     uint8
}

func (s *SSLRequest) encode() []byte {
	w := newByteWriter(32)
	w.writeUint32(s.Capabilities)
	w.writeUint32(s.MaxPacketSize)
	w.writeByte(s.CharsetID)
	w.writeZeros(23)
	return w.bytes()
}

// AuthSwitchRequest asks the client to retry authentication with a
// different plugin.
type AuthSwitchRequest struct {
	PluginName string
	PluginData []byte
}

func decodeAuthSwitchRequest(body []byte) (*AuthSwitchRequest, error) {
	r := newByteReader(body)
	marker, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if marker != 0xfe {
		return nil, newProtocolError(ErrProtocolValue, "expected AuthSwitchRequest marker 0xfe, got 0x%02x", marker)
	}
	name, err := r.readNullTerminatedString()
	if err != nil {
		return nil, err
	}
	data := r.readEOFString()
	if len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return &AuthSwitchRequest{PluginName: string(name), PluginData: append([]byte(nil), data...)}, nil
}

// AuthMoreData carries an intermediate step of caching_sha2_password
// (fast-auth success/failure marker, or a plaintext-request marker, or an
// RSA public key).
type AuthMoreData struct {
	Data []byte
}

func decodeAuthMoreData(body []byte) (*AuthMoreData, error) {
	r := newByteReader(body)
	marker, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if marker != 0x01 {
		return nil, newProtocolError(ErrProtocolValue, "expected AuthMoreData marker 0x01, got 0x%02x", marker)
	}
	return &AuthMoreData{Data: append([]byte(nil), r.readEOFString()...)}, nil
}
