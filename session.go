package mysql

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Session is a single, non-pooled client connection to a MySQL/MariaDB
// server (spec.md §4.4). It owns a Framer over a Transport and drives the
// handshake and per-command state machines. Grounded on
// ziutek-mymysql/native/init.go's handshake loop (read HandshakeV10,
// compute auth, send response, loop on OK/ERR/AuthSwitch/AuthMoreData) and
// native/command.go's per-command send shape.
type Session struct {
	TraceID uuid.UUID

	t       Transport
	framer  *Framer
	opts    Options
	closed  bool

	serverVersion string
	connectionID  uint32
	capabilities  uint32
	flavor        Flavor
	sslActive     bool

	active *ResultSet // non-nil while a resultset hasn't been fully drained
}

// Options configures a new Session's handshake.
type Options struct {
	Username      string
	Password      string
	Database      string
	ConnectAttrs  map[string]string
	MaxPacketSize uint32

	// UseTLS requests CLIENT_SSL and upgrades the transport mid-handshake.
	// The Transport passed to Connect must implement TLSUpgrader when true.
	UseTLS     bool
	ServerName string
}

func (o *Options) maxPacketSize() uint32 {
	if o.MaxPacketSize != 0 {
		return o.MaxPacketSize
	}
	return defaultMaxPacketSize
}

// Connect performs the handshake over t and returns a ready Session.
func Connect(ctx context.Context, t Transport, opts Options) (*Session, error) {
	s := &Session{
		TraceID: uuid.New(),
		t:       t,
		framer:  NewFramer(t),
		opts:    opts,
	}
	if err := s.handshake(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) handshake(ctx context.Context) error {
	body, err := s.framer.ReadPacket(ctx)
	if err != nil {
		return err
	}
	greeting, err := decodeHandshakeV10(body)
	if err != nil {
		return err
	}
	s.serverVersion = greeting.ServerVersion
	s.connectionID = greeting.ConnectionID
	s.flavor = DetectFlavor(greeting.ServerVersion)

	clientCaps := requiredCapabilities | (optionalCapabilities & greeting.Capabilities)
	if s.opts.Database != "" {
		clientCaps |= CapConnectWithDB
	}
	if len(s.opts.ConnectAttrs) > 0 && greeting.Capabilities&CapConnectAttrs != 0 {
		clientCaps |= CapConnectAttrs
	}
	if s.opts.UseTLS {
		if greeting.Capabilities&CapSSL == 0 {
			return newProtocolError(ErrServerUnsupported, "server does not advertise CLIENT_SSL")
		}
		clientCaps |= CapSSL
	}
	if requiredCapabilities&^greeting.Capabilities != 0 {
		return newProtocolError(ErrServerUnsupported, "server missing required capabilities")
	}
	s.capabilities = clientCaps

	if s.opts.UseTLS {
		upgrader, ok := s.t.(TLSUpgrader)
		if !ok {
			return newProtocolError(ErrSSLRequiredByClient, "transport does not support TLS upgrade")
		}
		sslReq := &SSLRequest{
			Capabilities:  clientCaps,
			MaxPacketSize: s.opts.maxPacketSize(),
			CharsetID:     defaultCharset,
		}
		if err := s.framer.WritePacket(ctx, sslReq.encode()); err != nil {
			return err
		}
		if err := upgrader.UpgradeTLS(ctx, s.opts.ServerName); err != nil {
			return err
		}
		s.sslActive = true
	}

	plugin, err := parseAuthPlugin(greeting.AuthPluginName)
	if err != nil {
		return err
	}
	authResponse, err := computeAuthResponse(plugin, s.opts.Password, greeting.AuthPluginData)
	if err != nil {
		return err
	}

	resp := &HandshakeResponse41{
		Capabilities:   clientCaps,
		MaxPacketSize:  s.opts.maxPacketSize(),
		CharsetID:      defaultCharset,
		Username:       s.opts.Username,
		AuthResponse:   authResponse,
		Database:       s.opts.Database,
		AuthPluginName: greeting.AuthPluginName,
		ConnectAttrs:   s.opts.ConnectAttrs,
	}
	if err := s.framer.WritePacket(ctx, resp.encode()); err != nil {
		return err
	}

	return s.authLoop(ctx, plugin)
}

// authLoop drives the post-response exchange: OK ends it, ERR fails it,
// AuthSwitchRequest restarts the dance with a different plugin, and
// AuthMoreData carries caching_sha2_password's fast/full-auth steps.
func (s *Session) authLoop(ctx context.Context, plugin authPlugin) error {
	for {
		body, err := s.framer.ReadPacket(ctx)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return newProtocolError(ErrProtocolValue, "empty packet during authentication")
		}
		switch body[0] {
		case 0x00:
			_, err := decodeOK(body)
			return err
		case 0xff:
			sqlErr, err := decodeERR(body)
			if err != nil {
				return err
			}
			return sqlErr
		case 0xfe:
			asr, err := decodeAuthSwitchRequest(body)
			if err != nil {
				return err
			}
			plugin, err = parseAuthPlugin(asr.PluginName)
			if err != nil {
				return err
			}
			response, err := computeAuthResponse(plugin, s.opts.Password, asr.PluginData)
			if err != nil {
				return err
			}
			if err := s.framer.WritePacket(ctx, response); err != nil {
				return err
			}
		case 0x01:
			more, err := decodeAuthMoreData(body)
			if err != nil {
				return err
			}
			if len(more.Data) == 0 {
				return newProtocolError(ErrProtocolValue, "empty AuthMoreData payload")
			}
			switch more.Data[0] {
			case authMoreDataFastAuthSuccess:
				// Next packet is the final OK; loop around.
				continue
			case authMoreDataFullAuthRequired:
				payload, err := resolveFullAuthPayload(s.opts.Password, s.sslActive)
				if err != nil {
					return err
				}
				if err := s.framer.WritePacket(ctx, payload); err != nil {
					return err
				}
			default:
				return newProtocolError(ErrProtocolValue, "unrecognized AuthMoreData marker 0x%02x", more.Data[0])
			}
		default:
			return newProtocolError(ErrProtocolValue, "unexpected packet type 0x%02x during authentication", body[0])
		}
	}
}

// IsOpen reports whether the Session can still accept commands.
func (s *Session) IsOpen() bool { return !s.closed }

// Flavor reports the detected server flavor.
func (s *Session) Flavor() Flavor { return s.flavor }

// ServerVersion returns the raw server_version string from the handshake.
func (s *Session) ServerVersion() string { return s.serverVersion }

func (s *Session) guardIdle() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.active != nil && !s.active.drained() {
		return ErrSessionBusy
	}
	return nil
}

// Query issues COM_QUERY and returns a streaming ResultSet.
func (s *Session) Query(ctx context.Context, query string) (*ResultSet, error) {
	if err := s.guardIdle(); err != nil {
		return nil, err
	}
	s.framer.ResetSequence()
	if err := s.framer.WritePacket(ctx, encodeComQuery(query)); err != nil {
		return nil, err
	}
	rs, err := newResultSet(ctx, s, false, nil)
	if err != nil {
		return nil, err
	}
	s.active = rs
	return rs, nil
}

// Ping issues COM_PING.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.guardIdle(); err != nil {
		return err
	}
	s.framer.ResetSequence()
	if err := s.framer.WritePacket(ctx, encodeComPing()); err != nil {
		return err
	}
	body, err := s.framer.ReadPacket(ctx)
	if err != nil {
		return err
	}
	return s.expectOK(body)
}

func (s *Session) expectOK(body []byte) error {
	switch classifyPacket(body, s.capabilities) {
	case packetOK:
		_, err := decodeOK(body)
		return err
	case packetERR:
		sqlErr, err := decodeERR(body)
		if err != nil {
			return err
		}
		return sqlErr
	default:
		return newProtocolError(ErrProtocolValue, "expected OK or ERR packet")
	}
}

// ResetConnection issues COM_RESET_CONNECTION, returning the session to a
// freshly-authenticated state (session variables cleared, transaction
// rolled back) without the cost of a full reconnect and re-authentication.
// Used by Pool between checkouts (spec.md §4.5's "PendingReset" state).
func (s *Session) ResetConnection(ctx context.Context) error {
	if err := s.guardIdle(); err != nil {
		return err
	}
	s.framer.ResetSequence()
	if err := s.framer.WritePacket(ctx, encodeComResetConnection()); err != nil {
		return err
	}
	body, err := s.framer.ReadPacket(ctx)
	if err != nil {
		return err
	}
	return s.expectOK(body)
}

// Close issues COM_QUIT and releases the transport. It tolerates the
// server simply closing the connection in response, which is the typical
// behavior for COM_QUIT.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	ctx := context.Background()
	s.framer.ResetSequence()
	_ = s.framer.WritePacket(ctx, encodeComQuit())
	return s.t.Close()
}

// Prepare issues COM_STMT_PREPARE and returns a PreparedStatement.
func (s *Session) Prepare(ctx context.Context, query string) (*PreparedStatement, error) {
	if err := s.guardIdle(); err != nil {
		return nil, err
	}
	s.framer.ResetSequence()
	if err := s.framer.WritePacket(ctx, encodeComStmtPrepare(query)); err != nil {
		return nil, err
	}
	body, err := s.framer.ReadPacket(ctx)
	if err != nil {
		return nil, err
	}
	if classifyPacket(body, s.capabilities) == packetERR {
		sqlErr, err := decodeERR(body)
		if err != nil {
			return nil, err
		}
		return nil, sqlErr
	}
	ok, err := decodePrepareOK(body)
	if err != nil {
		return nil, err
	}

	params := make([]ColumnMetadata, 0, ok.NumParams)
	for i := uint16(0); i < ok.NumParams; i++ {
		body, err := s.framer.ReadPacket(ctx)
		if err != nil {
			return nil, err
		}
		cm, err := decodeColumnDefinition41(body)
		if err != nil {
			return nil, err
		}
		params = append(params, *cm)
	}
	if ok.NumParams > 0 && s.capabilities&CapDeprecateEOF == 0 {
		if _, err := s.framer.ReadPacket(ctx); err != nil { // legacy EOF
			return nil, err
		}
	}

	columns := make([]ColumnMetadata, 0, ok.NumColumns)
	for i := uint16(0); i < ok.NumColumns; i++ {
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
	if ok.NumColumns > 0 && s.capabilities&CapDeprecateEOF == 0 {
		if _, err := s.framer.ReadPacket(ctx); err != nil { // legacy EOF
			return nil, err
		}
	}

	glog.V(2).Infof("mysql: session %s prepared statement id=%d params=%d columns=%d", s.TraceID, ok.StatementID, len(params), len(columns))

	return &PreparedStatement{
		session: s,
		id:      ok.StatementID,
		params:  params,
		columns: columns,
	}, nil
}

func (s *Session) String() string {
	return fmt.Sprintf("mysql.Session{trace=%s server=%s conn=%d flavor=%s}", s.TraceID, s.serverVersion, s.connectionID, s.flavor)
}
