package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/pkg/contracts/events"
)

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestPublishDrawSettled_KeyedByDraw(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPublisher(w, "draw_settled")

	raw := json.RawMessage(`{"drawId":"d1","tickets":[]}`)
	require.NoError(t, p.PublishDrawSettled(context.Background(), events.DrawSettled{
		DrawID: "d1", GameID: "loteca", TotalDistributedCents: 385, Result: raw,
	}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "d1", string(w.msgs[0].Key))

	var back events.DrawSettled
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &back))
	assert.Equal(t, int64(385), back.TotalDistributedCents)
	assert.JSONEq(t, string(raw), string(back.Result))
}
