package mysql

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the client-produced error categories from spec.md §7.
// It is a plain value type, per the Design Note "Global error category
// singletons... replace with pure value-typed error kinds carrying an
// optional diagnostics payload."
type ErrorKind int

const (
	ErrIncompleteMessage ErrorKind = iota
	ErrExtraBytes
	ErrSequenceMismatch
	ErrServerUnsupported
	ErrProtocolValue
	ErrUnknownAuthPlugin
	ErrSSLRequiredByClient
	ErrAuthPluginRequiresSSL
	ErrPoolTimeout
	ErrCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIncompleteMessage:
		return "incomplete_message"
	case ErrExtraBytes:
		return "extra_bytes"
	case ErrSequenceMismatch:
		return "sequence_number_mismatch"
	case ErrServerUnsupported:
		return "server_unsupported"
	case ErrProtocolValue:
		return "protocol_value_error"
	case ErrUnknownAuthPlugin:
		return "unknown_auth_plugin"
	case ErrSSLRequiredByClient:
		return "ssl_required_by_client"
	case ErrAuthPluginRequiresSSL:
		return "auth_plugin_requires_ssl"
	case ErrPoolTimeout:
		return "pool_timeout"
	case ErrCancelled:
		return "cancelled"
	default:
		return "unknown_error_kind"
	}
}

// ProtocolError carries a client-produced ErrorKind plus a human-readable
// diagnostic. It is the error type every Codec/Framer/Session-level failure
// that isn't a server response uses.
type ProtocolError struct {
	Kind    ErrorKind
	Message string
}

func newProtocolError(kind ErrorKind, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, someKindSentinel) work; see the errKind* sentinels
// below for the common comparisons callers do.
func (e *ProtocolError) Is(target error) bool {
	other, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinels for errors.Is comparisons against a bare kind, e.g.
// errors.Is(err, mysql.ErrKindPoolTimeout).
var (
	ErrKindIncompleteMessage     = &ProtocolError{Kind: ErrIncompleteMessage}
	ErrKindExtraBytes            = &ProtocolError{Kind: ErrExtraBytes}
	ErrKindSequenceMismatch      = &ProtocolError{Kind: ErrSequenceMismatch}
	ErrKindServerUnsupported     = &ProtocolError{Kind: ErrServerUnsupported}
	ErrKindProtocolValue         = &ProtocolError{Kind: ErrProtocolValue}
	ErrKindUnknownAuthPlugin     = &ProtocolError{Kind: ErrUnknownAuthPlugin}
	ErrKindSSLRequiredByClient   = &ProtocolError{Kind: ErrSSLRequiredByClient}
	ErrKindAuthPluginRequiresSSL = &ProtocolError{Kind: ErrAuthPluginRequiresSSL}
	ErrKindPoolTimeout           = &ProtocolError{Kind: ErrPoolTimeout}
	ErrKindCancelled             = &ProtocolError{Kind: ErrCancelled}
)

// ErrSessionBusy guards spec.md §3's invariant that a resultset in
// Reading-Rows must be fully drained before another command may be issued.
// It is a usage error, not a wire-protocol error, so it stays outside the
// ErrorKind taxonomy.
var ErrSessionBusy = errors.New("mysql: previous resultset not fully drained")

// ErrSessionClosed is returned by any operation attempted on a Session that
// has been closed or marked un-reusable after a mid-stream failure.
var ErrSessionClosed = errors.New("mysql: session is closed or unusable")

// SQLError is the error structure decoded from a server ERR packet, modeled
// directly on the teacher's go/mysql/sql_error.go.
type SQLError struct {
	Num     int
	State   string
	Message string
}

// SSUnknownSQLState is used when no better SQLSTATE is known.
const SSUnknownSQLState = "HY000"

// NewSQLError creates a new SQLError. If sqlState is empty it defaults to
// SSUnknownSQLState, matching the teacher's constructor.
func NewSQLError(number int, sqlState, format string, args ...interface{}) *SQLError {
	if sqlState == "" {
		sqlState = SSUnknownSQLState
	}
	return &SQLError{Num: number, State: sqlState, Message: fmt.Sprintf(format, args...)}
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("%s (errno %d) (sqlstate %s)", e.Message, e.Num, e.State)
}

// Number returns the server's numeric error code.
func (e *SQLError) Number() int { return e.Num }

// SQLState returns the 5-character SQLSTATE classification.
func (e *SQLError) SQLState() string { return e.State }

// A small common-error enumeration shared by MySQL and MariaDB (spec.md §7,
// SPEC_FULL.md "Common server-error enumeration"). Numbers match the wire
// protocol's server-side error codes.
const (
	ERAccessDeniedError = 1045
	ERBadDb             = 1049
	ERNoSuchTable        = 1146
	ERDupEntry           = 1062
	ERParseError         = 1064
	ERLockWaitTimeout    = 1205
	ERQueryInterrupted   = 1317
	ERUnknownError       = 1105

	SSAccessDeniedError = "28000"
	SSNoDB              = "3D000"
	SSUnknownTable      = "42S02"
	SSClientError        = "70100"
	SSQueryInterrupted   = "70100"
)
