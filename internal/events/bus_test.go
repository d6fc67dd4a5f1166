package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicPlacesChanged)
	require.NoError(t, err)

	bus.Publish(TopicPlacesChanged, PlacesChanged{
		Reason:   "merge",
		PlaceIDs: []string{"a", "b"},
	})

	select {
	case msg := <-msgs:
		var event PlacesChanged
		require.NoError(t, Decode(msg, &event))
		msg.Ack()

		assert.Equal(t, "merge", event.Reason)
		assert.Equal(t, []string{"a", "b"}, event.PlaceIDs)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		bus.Publish(TopicLocationUpdated, LocationUpdated{Latitude: 1, Longitude: 2, Time: 3})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestSubscriptionEndsOnContextCancel(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := bus.Subscribe(ctx, TopicAuthorizationChanged)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicPlacesChanged)
	require.NoError(t, err)

	bus.Publish(TopicPlacesChanged, "not an object")

	select {
	case msg := <-msgs:
		var event PlacesChanged
		assert.Error(t, Decode(msg, &event))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
