package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameKnownEvents(t *testing.T) {
	for _, event := range []string{
		EventJoinRoom, EventLeaveRoom, EventSendMessage,
		EventEditMessage, EventDeleteMessage, EventTyping, EventStopTyping,
	} {
		frame, err := DecodeFrame([]byte(`{"event":"` + event + `","data":{}}`))
		require.NoError(t, err, event)
		assert.Equal(t, event, frame.Event)
	}
}

func TestDecodeFrameRejectsUnknownAndMalformed(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"event":"selfDestruct","data":{}}`))
	assert.ErrorContains(t, err, "unknown event")

	_, err = DecodeFrame([]byte(`{"data":{}}`))
	assert.ErrorContains(t, err, "missing event")

	_, err = DecodeFrame([]byte(`{{{`))
	assert.ErrorContains(t, err, "malformed frame")
}

func TestDecodeRoomTrimsAndRequiresID(t *testing.T) {
	p, err := DecodeRoom(json.RawMessage(`{"roomId":"  general  "}`))
	require.NoError(t, err)
	assert.Equal(t, "general", p.RoomID)

	_, err = DecodeRoom(json.RawMessage(`{"roomId":"   "}`))
	assert.ErrorContains(t, err, "roomId is required")

	_, err = DecodeRoom(json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestDecodeSendMessage(t *testing.T) {
	replyTo := uuid.New()
	raw, err := json.Marshal(map[string]any{
		"roomId":  "general",
		"text":    "hello",
		"replyTo": replyTo,
	})
	require.NoError(t, err)

	p, err := DecodeSendMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "general", p.RoomID)
	assert.Equal(t, "hello", p.Text)
	require.NotNil(t, p.ReplyTo)
	assert.Equal(t, replyTo, *p.ReplyTo)

	_, err = DecodeSendMessage(json.RawMessage(`{"text":"orphan"}`))
	assert.ErrorContains(t, err, "roomId is required")
}

func TestDecodeEditMessageRequiresID(t *testing.T) {
	id := uuid.New()
	p, err := DecodeEditMessage(json.RawMessage(`{"messageId":"` + id.String() + `","text":"new"}`))
	require.NoError(t, err)
	assert.Equal(t, id, p.MessageID)

	_, err = DecodeEditMessage(json.RawMessage(`{"text":"new"}`))
	assert.ErrorContains(t, err, "messageId is required")
}

func TestDecodeDeleteMessageRequiresID(t *testing.T) {
	_, err := DecodeDeleteMessage(json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "messageId is required")

	_, err = DecodeDeleteMessage(json.RawMessage(`{"messageId":"not-a-uuid"}`))
	assert.Error(t, err)
}
