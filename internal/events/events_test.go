package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewEventBus()

	first := make(chan Event, 1)
	second := make(chan Event, 1)
	bus.Subscribe("EpochFinished", first)
	bus.Subscribe("EpochFinished", second)

	payload := EpochFinishedEvent{RunId: "run-1", Epoch: 2, GlobalStep: 10, TrainLoss: 0.5}
	bus.Publish(Event{Type: "EpochFinished", Timestamp: time.Now(), Data: payload})

	for _, channel := range []chan Event{first, second} {
		event := <-channel
		received, ok := event.Data.(EpochFinishedEvent)
		require.True(t, ok)
		assert.Equal(t, payload, received)
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := NewEventBus()

	bus.Publish(Event{Type: "TrainFinished", Timestamp: time.Now()})
}

func TestSubscriberOnlyReceivesItsType(t *testing.T) {
	bus := NewEventBus()

	channel := make(chan Event, 2)
	bus.Subscribe("EvalFinished", channel)

	bus.Publish(Event{Type: "EpochFinished", Timestamp: time.Now()})
	bus.Publish(Event{Type: "EvalFinished", Timestamp: time.Now()})

	assert.Len(t, channel, 1)
	event := <-channel
	assert.Equal(t, "EvalFinished", event.Type)
}
