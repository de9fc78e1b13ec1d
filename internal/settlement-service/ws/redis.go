package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub e repassa cada DrawUpdate ao Hub.
// Todas as instâncias do serviço assinam o mesmo canal: quem apura publica, todas entregam.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var upd DrawUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("ws subscriber unmarshal failed", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}

// RedisBroadcaster publica atualizações de concurso no canal Pub/Sub
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// Publish serializa payload e publica como DrawUpdate
func (b *RedisBroadcaster) Publish(ctx context.Context, drawID, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(DrawUpdate{DrawID: drawID, Type: kind, Payload: raw})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, msg).Err()
}
