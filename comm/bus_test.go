package comm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Bus Tests --------------------

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Message
	bus.Subscribe("alert", func(m Message) {
		got = append(got, m)
	})

	bus.Publish(Message{Topic: "alert", Payload: "CPU high!"})
	bus.Publish(Message{Topic: "other", Payload: "ignored"})

	require.Len(t, got, 1)
	assert.Equal(t, "CPU high!", got[0].Payload)
}

func TestPublishFillsDefaults(t *testing.T) {
	bus := NewBus()

	var got Message
	bus.Subscribe("alert", func(m Message) {
		got = m
	})

	bus.Publish(Message{Topic: "alert", Payload: "x"})

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, DefaultSource, got.Source)
	assert.False(t, got.Timestamp.IsZero())
}

func TestWildcardSubscription(t *testing.T) {
	bus := NewBus()

	var topics []string
	bus.Subscribe(TopicWildcard, func(m Message) {
		topics = append(topics, m.Topic)
	})

	bus.Publish(Message{Topic: "alert", Payload: 1})
	bus.Publish(Message{Topic: "snapshot", Payload: 2})

	assert.Equal(t, []string{"alert", "snapshot"}, topics)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	unsubscribe := bus.Subscribe("alert", func(Message) {
		count++
	})

	bus.Publish(Message{Topic: "alert"})
	unsubscribe()
	bus.Publish(Message{Topic: "alert"})

	assert.Equal(t, 1, count)
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("alert", func(Message) {
		panic("handler exploded")
	})

	delivered := false
	bus.Subscribe("alert", func(Message) {
		delivered = true
	})

	assert.NotPanics(t, func() {
		bus.Publish(Message{Topic: "alert"})
	})
	assert.True(t, delivered)
}

func TestHistory(t *testing.T) {
	bus := NewBus()

	bus.Publish(Message{Topic: "a", Payload: 1})
	bus.Publish(Message{Topic: "b", Payload: 2})
	bus.Publish(Message{Topic: "a", Payload: 3})

	all := bus.History("", 0)
	require.Len(t, all, 3)

	onlyA := bus.History("a", 0)
	require.Len(t, onlyA, 2)
	assert.Equal(t, 1, onlyA[0].Payload)
	assert.Equal(t, 3, onlyA[1].Payload)

	limited := bus.History("", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, 2, limited[0].Payload)
}

func TestHistoryBounded(t *testing.T) {
	bus := NewBus(func(o *BusOptions) {
		o.HistorySize = 2
	})

	bus.Publish(Message{Topic: "a", Payload: 1})
	bus.Publish(Message{Topic: "a", Payload: 2})
	bus.Publish(Message{Topic: "a", Payload: 3})

	all := bus.History("", 0)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].Payload)
	assert.Equal(t, 3, all[1].Payload)
}

func TestMessageString(t *testing.T) {
	m := Message{
		Topic:     "alert",
		Payload:   "CPU high!",
		Source:    "monitor",
		Timestamp: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
	}

	assert.Equal(t, "[10:30:00] monitor → alert: CPU high!", m.String())
}
