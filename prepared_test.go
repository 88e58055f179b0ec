package mysql

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePrepareOKForTest(stmtID uint32, numCols, numParams uint16) []byte {
	w := newByteWriter(16)
	w.writeByte(0x00)
	w.writeUint32(stmtID)
	w.writeUint16(numCols)
	w.writeUint16(numParams)
	w.writeByte(0)
	w.writeUint16(0)
	return w.bytes()
}

func TestPreparedStatementPrepareExecute(t *testing.T) {
	transport, server := newFakeServerPipe(t)
	ctx := withTestTimeout(t)
	scramble := testScramble()

	go func() {
		server.sendHandshake(ctx, t, scramble, PluginMysqlNativePassword)
		server.readHandshakeResponse(ctx, t)
		server.sendOK(ctx, t, 0)

		body, err := server.framer.ReadPacket(ctx)
		require.NoError(t, err)
		require.Equal(t, ComStmtPrepare, body[0])
		require.Equal(t, "SELECT id FROM t WHERE id = ?", string(body[1:]))

		require.NoError(t, server.framer.WritePacket(ctx, encodePrepareOKForTest(9, 1, 1)))
		paramCol := ColumnMetadata{Name: "?", Type: TypeLongLong}
		require.NoError(t, server.framer.WritePacket(ctx, encodeColumnDefinition41ForTest(paramCol)))
		resultCol := ColumnMetadata{Name: "id", Type: TypeLong}
		require.NoError(t, server.framer.WritePacket(ctx, encodeColumnDefinition41ForTest(resultCol)))

		execBody, err := server.framer.ReadPacket(ctx)
		require.NoError(t, err)
		require.Equal(t, ComStmtExecute, execBody[0])

		w := newByteWriter(4)
		w.writeLenEncInt(1)
		require.NoError(t, server.framer.WritePacket(ctx, w.bytes()))
		require.NoError(t, server.framer.WritePacket(ctx, encodeColumnDefinition41ForTest(resultCol)))

		row := newByteWriter(16)
		row.writeByte(0x00)
		row.writeByte(0x00) // null bitmap, single column, bit offset 2, not null
		row.writeUint32(7)
		require.NoError(t, server.framer.WritePacket(ctx, row.bytes()))
		server.sendOK(ctx, t, 0)

		closeBody, err := server.framer.ReadPacket(ctx)
		require.NoError(t, err)
		require.Equal(t, ComStmtClose, closeBody[0])
	}()

	session, err := Connect(ctx, transport, Options{Username: "root", Password: "s3cret"})
	require.NoError(t, err)

	stmt, err := session.Prepare(ctx, "SELECT id FROM t WHERE id = ?")
	require.NoError(t, err)
	assert.Equal(t, 1, stmt.NumParams())

	rs, err := stmt.Execute(ctx, []Param{{Value: FieldView{Logical: LogicalInt64, Int64: 7}}})
	require.NoError(t, err)

	row, err := rs.ReadRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row[0].Int64)

	_, err = rs.ReadRow(ctx)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, stmt.Close(ctx))
}

func TestPreparedStatementExecuteRejectsWrongParamCount(t *testing.T) {
	stmt := &PreparedStatement{params: make([]ColumnMetadata, 2)}
	_, err := stmt.Execute(withTestTimeout(t), []Param{{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKindProtocolValue)
}
