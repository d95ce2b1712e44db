package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testIdentity(name string) Identity {
	return Identity{
		UserID:      uuid.New(),
		Email:       name + "@dealdesk.io",
		DisplayName: name,
	}
}

func recvEvent(t *testing.T, c *Conn) Event {
	t.Helper()
	select {
	case data := <-c.Receive():
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case data := <-c.Receive():
		t.Fatalf("unexpected event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectJoinsPersonalRoom(t *testing.T) {
	h := New(zap.NewNop())
	alice := testIdentity("alice")
	conn := h.Connect(alice)

	h.PublishToUser(alice.UserID, "conversation_update", map[string]string{"hello": "inbox"})

	evt := recvEvent(t, conn)
	require.Equal(t, "conversation_update", evt.Event)
}

func TestPublishToRoomReachesAllSubscribers(t *testing.T) {
	h := New(zap.NewNop())
	a := h.Connect(testIdentity("alice"))
	b := h.Connect(testIdentity("bob"))
	outsider := h.Connect(testIdentity("carol"))

	room := ChannelRoom(uuid.New())
	h.Join(a, room)
	h.Join(b, room)

	h.PublishToRoom(room, "new_message", map[string]string{"body": "hi"})

	require.Equal(t, "new_message", recvEvent(t, a).Event)
	require.Equal(t, "new_message", recvEvent(t, b).Event)
	requireNoEvent(t, outsider)
}

func TestJoinIsIdempotent(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))

	room := ChannelRoom(uuid.New())
	h.Join(conn, room)
	h.Join(conn, room)

	h.PublishToRoom(room, "new_message", nil)

	recvEvent(t, conn)
	requireNoEvent(t, conn)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))

	room := DMRoom(uuid.New())
	h.Join(conn, room)
	h.Leave(conn, room)
	// Leaving twice is fine.
	h.Leave(conn, room)

	h.PublishToRoom(room, "new_message", nil)
	requireNoEvent(t, conn)
}

func TestDisconnectDropsAllRooms(t *testing.T) {
	h := New(zap.NewNop())
	alice := testIdentity("alice")
	conn := h.Connect(alice)

	room := ChannelRoom(uuid.New())
	h.Join(conn, room)
	h.Disconnect(conn)

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after disconnect")
	}

	h.PublishToRoom(room, "new_message", nil)
	h.PublishToUser(alice.UserID, "conversation_update", nil)
	requireNoEvent(t, conn)

	// Disconnected is terminal: the connection cannot rejoin.
	h.Join(conn, room)
	h.PublishToRoom(room, "new_message", nil)
	requireNoEvent(t, conn)
}

func TestPersonalRoomSeparateFromConversationRoom(t *testing.T) {
	h := New(zap.NewNop())
	alice := testIdentity("alice")
	bob := testIdentity("bob")
	aliceConn := h.Connect(alice)
	bobConn := h.Connect(bob)

	// Alice views the channel; Bob is a member but not subscribed.
	room := ChannelRoom(uuid.New())
	h.Join(aliceConn, room)

	h.PublishToRoom(room, "new_message", nil)
	h.PublishToUser(alice.UserID, "conversation_update", nil)
	h.PublishToUser(bob.UserID, "conversation_update", nil)

	require.Equal(t, "new_message", recvEvent(t, aliceConn).Event)
	require.Equal(t, "conversation_update", recvEvent(t, aliceConn).Event)
	require.Equal(t, "conversation_update", recvEvent(t, bobConn).Event)
	requireNoEvent(t, bobConn)
}

type recordingForwarder struct {
	rooms []string
	data  [][]byte
}

func (f *recordingForwarder) Forward(roomID string, data []byte) {
	f.rooms = append(f.rooms, roomID)
	f.data = append(f.data, data)
}

func TestPublishMirrorsThroughForwarder(t *testing.T) {
	h := New(zap.NewNop())
	fwd := &recordingForwarder{}
	h.SetForwarder(fwd)

	room := ChannelRoom(uuid.New())
	h.PublishToRoom(room, "new_message", map[string]string{"body": "hi"})

	require.Len(t, fwd.rooms, 1)
	require.Equal(t, room, fwd.rooms[0])

	var evt Event
	require.NoError(t, json.Unmarshal(fwd.data[0], &evt))
	require.Equal(t, "new_message", evt.Event)
}

func TestDeliverLocalSkipsMarshal(t *testing.T) {
	h := New(zap.NewNop())
	conn := h.Connect(testIdentity("alice"))

	room := DMRoom(uuid.New())
	h.Join(conn, room)

	// The bridge hands over pre-encoded frames from peer instances.
	frame := []byte(`{"event":"new_message","payload":{"body":"remote"}}`)
	h.DeliverLocal(room, frame)

	evt := recvEvent(t, conn)
	require.Equal(t, "new_message", evt.Event)
}
