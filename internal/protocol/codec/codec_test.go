package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/old-maid/internal/protocol"
)

func TestEncodeDecode_JSON(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomCode: "123456", PlayerName: "Alice"})
	data, err := Encode(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")

	decoded, err := Decode(data)
	require.NoError(t, err)
	defer PutMessage(decoded)
	assert.Equal(t, protocol.MsgJoinRoom, decoded.Type)

	payload, err := ParsePayload[protocol.JoinRoomPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, "123456", payload.RoomCode)
	assert.Equal(t, "Alice", payload.PlayerName)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestParsePayload_Empty(t *testing.T) {
	t.Parallel()

	msg := &protocol.Message{Type: protocol.MsgDrawCard}
	payload, err := ParsePayload[protocol.PingPayload](msg)
	require.NoError(t, err)
	assert.Zero(t, payload.Timestamp)
}

func TestEncodeDecode_Binary(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgGameState, protocol.GameStatePayload{
		RoomCode:      "654321",
		State:         "playing",
		NextTargetIdx: -1,
		Players: []protocol.PlayerInfo{
			{ID: "p1", Name: "Alice", CardsCount: 12, IsAdmin: true},
			{ID: "p2", Name: "Bob", CardsCount: 13},
		},
		Log: []protocol.LogEntryInfo{{Time: 1700000000123, Message: "开始"}},
	})

	data, err := EncodeBinary(msg)
	require.NoError(t, err)

	decoded, err := DecodeBinary(data)
	require.NoError(t, err)
	defer PutMessage(decoded)
	assert.Equal(t, protocol.MsgGameState, decoded.Type)

	state, err := ParsePayload[protocol.GameStatePayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, "654321", state.RoomCode)
	assert.Equal(t, -1, state.NextTargetIdx)
	require.Len(t, state.Players, 2)
	assert.Equal(t, 12, state.Players[0].CardsCount)
	assert.True(t, state.Players[0].IsAdmin)
	assert.Equal(t, int64(1700000000123), state.Log[0].Time)
}

func TestEncodeDecode_BinaryNoPayload(t *testing.T) {
	t.Parallel()

	data, err := EncodeBinary(&protocol.Message{Type: protocol.MsgDrawCard})
	require.NoError(t, err)

	decoded, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgDrawCard, decoded.Type)
	assert.Empty(t, decoded.Payload)
}

func TestDecodeBinary_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeBinary([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestNewErrorMessage(t *testing.T) {
	t.Parallel()

	msg := NewErrorMessage(protocol.ErrCodeNotYourTurn)
	assert.Equal(t, protocol.MsgError, msg.Type)

	payload, err := ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeNotYourTurn, payload.Code)
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeNotYourTurn], payload.Message)
}
