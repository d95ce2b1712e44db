package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fanoutChannel is the Redis pub/sub channel shared by all instances.
const fanoutChannel = "dealdesk:fanout"

// bridgeFrame wraps an event frame with its room and origin instance.
// Origin lets each instance skip events it published itself — those were
// already delivered locally.
type bridgeFrame struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

// Bridge mirrors hub events across instances over Redis pub/sub, so a
// client connected to one instance still receives messages persisted
// through another. Same delivery contract as the hub itself: best-effort,
// no replay.
type Bridge struct {
	rdb        *redis.Client
	hub        *Hub
	instanceID string
	logger     *zap.Logger
}

func NewBridge(rdb *redis.Client, h *Hub, logger *zap.Logger) *Bridge {
	b := &Bridge{
		rdb:        rdb,
		hub:        h,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
	h.SetForwarder(b)
	return b
}

// Forward publishes a locally-delivered frame to peers. Fire-and-forget off
// the publisher's goroutine; a Redis hiccup costs remote delivery only.
func (b *Bridge) Forward(roomID string, data []byte) {
	frame, err := json.Marshal(bridgeFrame{
		Origin: b.instanceID,
		Room:   roomID,
		Data:   data,
	})
	if err != nil {
		b.logger.Error("marshal bridge frame", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.rdb.Publish(ctx, fanoutChannel, frame).Err(); err != nil {
			b.logger.Warn("forward to peers", zap.Error(err))
		}
	}()
}

// Run subscribes to the fanout channel and re-delivers foreign events to
// local rooms until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, fanoutChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe fanout: %w", err)
	}

	b.logger.Info("fanout bridge running",
		zap.String("instance_id", b.instanceID),
	)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handleFrame([]byte(msg.Payload))
		}
	}
}

// handleFrame re-delivers one subscribed frame to local rooms. Frames this
// instance published itself are skipped: they were already delivered
// locally before the forward, so replaying them would double-deliver.
func (b *Bridge) handleFrame(payload []byte) {
	var frame bridgeFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		b.logger.Warn("malformed bridge frame", zap.Error(err))
		return
	}
	if frame.Origin == b.instanceID {
		return
	}
	b.hub.DeliverLocal(frame.Room, frame.Data)
}
