package hub

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBridge(h *Hub) *Bridge {
	return &Bridge{
		hub:        h,
		instanceID: uuid.NewString(),
		logger:     zap.NewNop(),
	}
}

func bridgePayload(t *testing.T, origin, room string, evt Event) []byte {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	payload, err := json.Marshal(bridgeFrame{
		Origin: origin,
		Room:   room,
		Data:   data,
	})
	require.NoError(t, err)
	return payload
}

func TestBridgeDeliversForeignFrames(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))
	room := ChannelRoom(uuid.New())
	h.Join(conn, room)

	b := testBridge(h)
	b.handleFrame(bridgePayload(t, "peer-instance", room, Event{Event: "new_message"}))

	require.Equal(t, "new_message", recvEvent(t, conn).Event)
}

func TestBridgeSkipsOwnOriginFrames(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))
	room := ChannelRoom(uuid.New())
	h.Join(conn, room)

	b := testBridge(h)

	// A frame this instance published comes back from the subscription.
	// Local delivery already happened, so replaying it would deliver twice.
	b.handleFrame(bridgePayload(t, b.instanceID, room, Event{Event: "new_message"}))
	requireNoEvent(t, conn)

	b.handleFrame(bridgePayload(t, "peer-instance", room, Event{Event: "new_message"}))
	require.Equal(t, "new_message", recvEvent(t, conn).Event)
}

func TestBridgeIgnoresMalformedFrames(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))
	room := ChannelRoom(uuid.New())
	h.Join(conn, room)

	b := testBridge(h)
	b.handleFrame([]byte("not json"))
	requireNoEvent(t, conn)
}
