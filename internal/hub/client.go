package hub

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// clientFrame is the only inbound traffic a socket carries: room join and
// leave requests. Messages themselves go over the HTTP API.
type clientFrame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// client pumps between one websocket and its hub session. The read pump is
// the sole goroutine acting on this connection's subscriptions; the write
// pump is the sole writer to the socket.
type client struct {
	ws     *websocket.Conn
	sess   *Conn
	hub    *Hub
	logger *zap.Logger
}

func newClient(h *Hub, sess *Conn, ws *websocket.Conn, logger *zap.Logger) *client {
	return &client{ws: ws, sess: sess, hub: h, logger: logger}
}

func (c *client) run() {
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.Disconnect(c.sess)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug("ignoring malformed frame", zap.Error(err))
			continue
		}
		if !validRoom(frame.Room) {
			continue
		}

		switch frame.Action {
		case "join":
			c.hub.Join(c.sess, frame.Room)
		case "leave":
			c.hub.Leave(c.sess, frame.Room)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.sess.Receive():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.sess.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// validRoom rejects frames for anything that isn't a channel or DM room.
// Personal rooms are joined by the hub on connect, never by client request.
func validRoom(roomID string) bool {
	return strings.HasPrefix(roomID, "channel:") || strings.HasPrefix(roomID, "dm:")
}
