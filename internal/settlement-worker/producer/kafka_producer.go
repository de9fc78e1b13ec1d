package producer

import (
	"context"

	"github.com/radieske/pool-settlement/internal/shared/kafka"
	"github.com/radieske/pool-settlement/pkg/contracts/events"
)

// KafkaPublisher publica draw_settled; a chave é o drawId (mesma partição por concurso)
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) PublishDrawSettled(ctx context.Context, e events.DrawSettled) error {
	return kafka.WriteJSON(ctx, p.Writer, e.DrawID, e)
}
