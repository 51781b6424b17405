package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Allowed(t *testing.T) {
	assert.True(t, TextDelta.Allowed())
	assert.True(t, MessageFull.Allowed())
	assert.True(t, Channel("agent:future-event").Allowed())
	assert.False(t, Channel("unregistered:channel").Allowed())
	assert.False(t, Channel("agent").Allowed())
	assert.False(t, Channel("").Allowed())
}

func TestRelay_RejectsUnlistedChannel(t *testing.T) {
	r := New()
	defer r.Close()

	delivered := 0
	r.SubscribeAll(func(ch Channel, payload json.RawMessage) { delivered++ })

	err := r.Publish(Channel("unregistered:channel"), map[string]string{"x": "y"})
	require.ErrorIs(t, err, ErrChannelRejected)
	assert.Zero(t, delivered, "rejected publish must reach no consumer")
}

func TestRelay_DeliversToExactChannelSubscribers(t *testing.T) {
	r := New()
	defer r.Close()

	var got []string
	unsub, err := r.Subscribe(TextDelta, func(ch Channel, payload json.RawMessage) {
		got = append(got, string(payload))
	})
	require.NoError(t, err)
	defer unsub()

	_, err = r.Subscribe(StreamCompleted, func(ch Channel, payload json.RawMessage) {
		t.Error("wrong channel delivered")
	})
	require.NoError(t, err)

	require.NoError(t, r.Publish(TextDelta, TextDeltaPayload{ThreadID: "t1", Text: "hi"}))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"threadID":"t1","text":"hi"}`, got[0])
}

func TestRelay_OrderingPreserved(t *testing.T) {
	r := New()
	defer r.Close()

	var order []Channel
	r.SubscribeAll(func(ch Channel, payload json.RawMessage) {
		order = append(order, ch)
	})

	require.NoError(t, r.Publish(ToolCallStarted, ToolCallStartedPayload{ThreadID: "t1", CallID: "c1", Name: "read_file"}))
	require.NoError(t, r.Publish(ToolCallDelta, ToolCallDeltaPayload{ThreadID: "t1", CallID: "c1", Args: "{"}))
	require.NoError(t, r.Publish(ToolCallDelta, ToolCallDeltaPayload{ThreadID: "t1", CallID: "c1", Args: "}"}))
	require.NoError(t, r.Publish(ToolCallEnded, ToolCallEndedPayload{ThreadID: "t1", CallID: "c1"}))

	assert.Equal(t, []Channel{ToolCallStarted, ToolCallDelta, ToolCallDelta, ToolCallEnded}, order)
}

func TestRelay_UnsubscribeRemovesOnlyThatRegistration(t *testing.T) {
	r := New()
	defer r.Close()

	var a, b int
	unsubA, err := r.Subscribe(TextDelta, func(ch Channel, payload json.RawMessage) { a++ })
	require.NoError(t, err)
	_, err = r.Subscribe(TextDelta, func(ch Channel, payload json.RawMessage) { b++ })
	require.NoError(t, err)

	require.NoError(t, r.Publish(TextDelta, TextDeltaPayload{ThreadID: "t1", Text: "x"}))
	unsubA()
	require.NoError(t, r.Publish(TextDelta, TextDeltaPayload{ThreadID: "t1", Text: "y"}))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestRelay_SubscribeRejectsUnlistedChannel(t *testing.T) {
	r := New()
	defer r.Close()

	_, err := r.Subscribe(Channel("other:events"), func(Channel, json.RawMessage) {})
	assert.ErrorIs(t, err, ErrChannelRejected)
}

func TestRelay_ClosedPublishFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Close())

	err := r.Publish(TextDelta, TextDeltaPayload{ThreadID: "t1"})
	assert.ErrorIs(t, err, ErrClosed)
}
