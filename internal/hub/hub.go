// Package hub is the realtime fanout layer. It keeps per-connection room
// subscriptions in process memory and pushes events to connected clients.
// It is independent of persistence: it consumes message-service output and
// never reads the store.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Room id helpers. One room per channel, one per DM thread, and one
// personal room per user for conversation-list refresh events.
func ChannelRoom(id uuid.UUID) string { return "channel:" + id.String() }
func DMRoom(id uuid.UUID) string     { return "dm:" + id.String() }
func UserRoom(id uuid.UUID) string   { return "user:" + id.String() }

// Identity is the authenticated identity a connection carries. It is
// established once during credential exchange; a connection that fails the
// exchange is dropped without ever reaching the hub.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// Event is the wire envelope for everything the hub delivers.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Conn is one authenticated connection's hub session. Outbound events are
// queued on a bounded channel; the transport layer drains it. sendQueueSize
// absorbs bursts — a consumer that falls further behind loses events, which
// is within the best-effort delivery contract (clients reconcile via reads).
const sendQueueSize = 256

type Conn struct {
	identity Identity
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *Conn) Identity() Identity { return c.identity }

// Receive is the stream of outbound event frames for this connection.
func (c *Conn) Receive() <-chan []byte { return c.send }

// Done is closed when the connection is disconnected from the hub.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Forwarder mirrors published events to peer instances. Optional; a hub
// without one serves a single-process deployment.
type Forwarder interface {
	Forward(roomID string, data []byte)
}

// Hub tracks which connections are in which rooms and fans events out.
//
// Joins are trusted: room ids only reach clients through authorized
// message/membership operations, so the hub does not re-verify membership
// per join. That is a documented trust boundary; hardening would mean
// re-deriving allowed rooms from the membership authority at join time.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	// memberships is the reverse index, so disconnect can drop a
	// connection from every room without a full scan.
	memberships map[*Conn]map[string]struct{}

	forwarder Forwarder
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Conn]struct{}),
		memberships: make(map[*Conn]map[string]struct{}),
		logger:      logger,
	}
}

// SetForwarder attaches a cross-instance mirror. Call before serving.
func (h *Hub) SetForwarder(f Forwarder) { h.forwarder = f }

// Connect registers an authenticated connection and joins it to its own
// personal room. This is the Connecting → Authenticated transition.
func (h *Hub) Connect(identity Identity) *Conn {
	c := &Conn{
		identity: identity,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.memberships[c] = make(map[string]struct{})
	h.mu.Unlock()

	h.Join(c, UserRoom(identity.UserID))

	h.logger.Debug("connection authenticated",
		zap.String("user_id", identity.UserID.String()),
	)
	return c
}

// Disconnect drops the connection from every room it joined. Terminal: the
// connection's Done channel closes and it cannot rejoin.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	for roomID := range h.memberships[c] {
		h.removeLocked(roomID, c)
	}
	delete(h.memberships, c)
	h.mu.Unlock()

	c.once.Do(func() { close(c.done) })
}

// Join subscribes a connection to a room. Idempotent; joining a room twice
// is a no-op, and delivery stays at-most-once per connection.
func (h *Hub) Join(c *Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.memberships[c]
	if !ok {
		// Disconnected is terminal; a dropped connection cannot rejoin.
		return
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Conn]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	m[roomID] = struct{}{}
}

// Leave unsubscribes a connection from a room. Idempotent.
func (h *Hub) Leave(c *Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(roomID, c)
	if m := h.memberships[c]; m != nil {
		delete(m, roomID)
	}
}

func (h *Hub) removeLocked(roomID string, c *Conn) {
	if conns := h.rooms[roomID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// PublishToRoom delivers an event to every connection subscribed to the
// room, locally and (via the forwarder) on peer instances. Best-effort:
// nobody in the room means the event simply evaporates, and clients that
// were not connected reconcile through a subsequent read.
func (h *Hub) PublishToRoom(roomID, event string, payload any) {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("marshal event",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	h.DeliverLocal(roomID, data)
	if h.forwarder != nil {
		h.forwarder.Forward(roomID, data)
	}
}

// PublishToUser delivers to a user's personal room.
func (h *Hub) PublishToUser(userID uuid.UUID, event string, payload any) {
	h.PublishToRoom(UserRoom(userID), event, payload)
}

// DeliverLocal pushes an already-encoded frame to local subscribers only.
// The bridge uses it for events that originated on another instance.
func (h *Hub) DeliverLocal(roomID string, data []byte) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case <-c.done:
		case c.send <- data:
		default:
			// Full queue: drop for this connection rather than block the
			// publisher or mutate the connection's state from here.
			h.logger.Warn("dropping event for slow consumer",
				zap.String("room", roomID),
				zap.String("user_id", c.identity.UserID.String()),
			)
		}
	}
}
