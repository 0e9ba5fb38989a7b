package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bikestore/internal/services"
)

func TestNewMessage_OrderEvent(t *testing.T) {
	cartID := uuid.New()
	evt := services.OrderEvent{
		Type:        services.EventOrderPlaced,
		CartID:      cartID,
		OrderNumber: "ORD-1-ABCDE",
		TotalAmount: 1050,
		OccurredAt:  time.Now().UTC(),
	}

	msg, err := newMessage(cartID.String(), evt)
	require.NoError(t, err)

	assert.Equal(t, cartID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var decoded services.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ORD-1-ABCDE", decoded.OrderNumber)
	assert.Equal(t, cartID, decoded.CartID)
}

func TestNewMessage_PlainPayload(t *testing.T) {
	msg, err := newMessage("k", map[string]string{"hello": "world"})
	require.NoError(t, err)
	assert.Empty(t, msg.Headers)
	assert.JSONEq(t, `{"hello":"world"}`, string(msg.Value))

	_, err = newMessage("k", make(chan int))
	assert.Error(t, err)
}
