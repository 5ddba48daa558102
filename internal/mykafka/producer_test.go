package mykafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := NewMessage("order-7", EventOrderCreated, map[string]any{"order_id": 7}, now)
	require.NoError(t, err)

	assert.Equal(t, "order-7", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventOrderCreated, string(msg.Headers[0].Value))

	var ev map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventOrderCreated, ev["type"])
	assert.NotEmpty(t, ev["id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", ev["timestamp"])
	assert.EqualValues(t, 7, ev["payload"].(map[string]any)["order_id"])
}

func TestNewMessage_UnmarshalablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewMessage("k", "x", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Nop{}.Publish(context.Background(), "k", "t", nil))
}
