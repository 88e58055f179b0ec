package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeOKForTest(affected, lastID uint64, status, warnings uint16, info string) []byte {
	w := newByteWriter(32)
	w.writeByte(0x00)
	w.writeLenEncInt(affected)
	w.writeLenEncInt(lastID)
	w.writeUint16(status)
	w.writeUint16(warnings)
	w.writeBytes([]byte(info))
	return w.bytes()
}

func TestDecodeOK(t *testing.T) {
	body := encodeOKForTest(3, 42, StatusAutocommit, 1, "rows matched")
	ok, err := decodeOK(body)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), ok.AffectedRows)
	assert.Equal(t, uint64(42), ok.LastInsertID)
	assert.Equal(t, StatusAutocommit, ok.StatusFlags)
	assert.Equal(t, uint16(1), ok.Warnings)
	assert.Equal(t, "rows matched", ok.Info)
}

func TestClassifyPacket(t *testing.T) {
	assert.Equal(t, packetOK, classifyPacket([]byte{0x00, 0x00, 0x00}, requiredCapabilities))
	assert.Equal(t, packetERR, classifyPacket([]byte{0xff, 0x15, 0x04}, requiredCapabilities))
	assert.Equal(t, packetOther, classifyPacket(nil, requiredCapabilities))
	// 0xfe is never EOF once CLIENT_DEPRECATE_EOF is negotiated.
	assert.Equal(t, packetOther, classifyPacket([]byte{0xfe, 0x00, 0x00}, requiredCapabilities))
	// Without CLIENT_DEPRECATE_EOF, a short 0xfe-led packet is legacy EOF.
	assert.Equal(t, packetEOF, classifyPacket([]byte{0xfe, 0x00, 0x00}, requiredCapabilities&^CapDeprecateEOF))
	// A long lenenc column-count packet that happens to start with 0xfe is
	// not mistaken for EOF even without CLIENT_DEPRECATE_EOF.
	longBody := make([]byte, 9)
	longBody[0] = 0xfe
	assert.Equal(t, packetOther, classifyPacket(longBody, requiredCapabilities&^CapDeprecateEOF))
}

func TestDecodeERR(t *testing.T) {
	w := newByteWriter(32)
	w.writeByte(0xff)
	w.writeUint16(1049)
	w.writeBytes([]byte("#3D000Unknown database 'x'"))
	sqlErr, err := decodeERR(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, 1049, sqlErr.Number())
	assert.Equal(t, "3D000", sqlErr.SQLState())
	assert.Equal(t, "Unknown database 'x'", sqlErr.Message)
}

func TestDecodeERRWithoutSQLState(t *testing.T) {
	w := newByteWriter(32)
	w.writeByte(0xff)
	w.writeUint16(1105)
	w.writeBytes([]byte("generic failure"))
	sqlErr, err := decodeERR(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, SSUnknownSQLState, sqlErr.SQLState())
	assert.Equal(t, "generic failure", sqlErr.Message)
}

func TestSQLErrorIsAnError(t *testing.T) {
	err := NewSQLError(ERNoSuchTable, SSUnknownTable, "table %q missing", "users")
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "1146")
	assert.Contains(t, err.Error(), "42S02")
}

func TestDecodeEOF(t *testing.T) {
	w := newByteWriter(8)
	w.writeByte(0xfe)
	w.writeUint16(0)
	w.writeUint16(StatusAutocommit)
	info, err := decodeEOF(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusAutocommit, info.StatusFlags)
}
