package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeHandshakeV10ForTest(t *testing.T, version string, caps uint32, pluginName string, scramble []byte) []byte {
	t.Helper()
	require.Equal(t, 20, len(scramble), "test scramble must be 20 bytes")

	w := newByteWriter(128)
	w.writeByte(10)
	w.writeNullTerminatedString([]byte(version))
	w.writeUint32(987)
	w.writeBytes(scramble[:8])
	w.writeByte(0)
	w.writeUint16(uint16(caps))
	w.writeByte(defaultCharset)
	w.writeUint16(StatusAutocommit)
	w.writeUint16(uint16(caps >> 16))
	w.writeByte(21) // auth-plugin-data length: 8 + 13
	w.writeZeros(10)
	w.writeBytes(scramble[8:])
	w.writeByte(0)
	w.writeNullTerminatedString([]byte(pluginName))
	return w.bytes()
}

func TestDecodeHandshakeV10(t *testing.T) {
	scramble := []byte("01234567890123456789")[:20]
	caps := requiredCapabilities | CapLongPassword
	body := encodeHandshakeV10ForTest(t, "8.0.34-mysql", caps, PluginMysqlNativePassword, scramble)

	h, err := decodeHandshakeV10(body)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), h.ProtocolVersion)
	assert.Equal(t, "8.0.34-mysql", h.ServerVersion)
	assert.Equal(t, uint32(987), h.ConnectionID)
	assert.Equal(t, caps, h.Capabilities)
	assert.Equal(t, PluginMysqlNativePassword, h.AuthPluginName)
	assert.Equal(t, scramble, h.AuthPluginData)
}

func TestDecodeHandshakeV10RejectsOtherProtocolVersions(t *testing.T) {
	w := newByteWriter(8)
	w.writeByte(9)
	_, err := decodeHandshakeV10(w.bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKindServerUnsupported)
}

func TestHandshakeResponse41EncodeDecodeShape(t *testing.T) {
	resp := &HandshakeResponse41{
		Capabilities:   requiredCapabilities | CapConnectWithDB,
		MaxPacketSize:  defaultMaxPacketSize,
		CharsetID:      defaultCharset,
		Username:       "root",
		AuthResponse:   []byte{1, 2, 3, 4},
		Database:       "test",
		AuthPluginName: PluginMysqlNativePassword,
	}
	encoded := resp.encode()

	r := newByteReader(encoded)
	caps, err := r.readUint32()
	require.NoError(t, err)
	assert.Equal(t, resp.Capabilities, caps)

	maxPkt, err := r.readUint32()
	require.NoError(t, err)
	assert.Equal(t, resp.MaxPacketSize, maxPkt)

	charset, err := r.readByte()
	require.NoError(t, err)
	assert.Equal(t, resp.CharsetID, charset)

	_, err = r.readBytes(23)
	require.NoError(t, err)

	username, err := r.readNullTerminatedString()
	require.NoError(t, err)
	assert.Equal(t, "root", string(username))

	authResp, err := r.readBytes(1 + len(resp.AuthResponse))
	require.NoError(t, err)
	assert.Equal(t, byte(len(resp.AuthResponse)), authResp[0])
	assert.Equal(t, resp.AuthResponse, authResp[1:])

	db, err := r.readNullTerminatedString()
	require.NoError(t, err)
	assert.Equal(t, "test", string(db))

	plugin, err := r.readNullTerminatedString()
	require.NoError(t, err)
	assert.Equal(t, PluginMysqlNativePassword, string(plugin))

	assert.True(t, r.atEOF())
}

func TestDecodeAuthSwitchRequest(t *testing.T) {
	w := newByteWriter(32)
	w.writeByte(0xfe)
	w.writeNullTerminatedString([]byte(PluginCachingSha2Password))
	w.writeBytes([]byte("abcdefghijklmnopqrst"))
	w.writeByte(0)

	asr, err := decodeAuthSwitchRequest(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, PluginCachingSha2Password, asr.PluginName)
	assert.Equal(t, "abcdefghijklmnopqrst", string(asr.PluginData))
}

func TestDecodeAuthMoreData(t *testing.T) {
	w := newByteWriter(4)
	w.writeByte(0x01)
	w.writeByte(authMoreDataFastAuthSuccess)
	more, err := decodeAuthMoreData(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, []byte{authMoreDataFastAuthSuccess}, more.Data)
}
