package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, b:9092,"))
	assert.Nil(t, Brokers(""))
}

func TestWriteJSON(t *testing.T) {
	w := &captureWriter{}
	require.NoError(t, WriteJSON(context.Background(), w, "d1", map[string]string{"drawId": "d1"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "d1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"drawId":"d1"}`, string(w.msgs[0].Value))

	require.Error(t, WriteJSON(context.Background(), w, "x", make(chan int)))
}
