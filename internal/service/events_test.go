package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHub_PublishRoutesByParticipation(t *testing.T) {
	t.Parallel()
	hub := NewEventHub()
	defer hub.Close()

	mine := hub.Subscribe("participation:1", "a")
	other := hub.Subscribe("participation:2", "b")

	hub.Publish(NewParticipationEvent(EventArrived, "participation:1", map[string]int{"index": 0}))

	select {
	case ev := <-mine.Events:
		assert.Equal(t, EventArrived, ev.Type)
		assert.Equal(t, "participation:1", ev.ParticipationID)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}

	select {
	case ev := <-other.Events:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}
}

func TestEventHub_UnsubscribeClosesChannels(t *testing.T) {
	t.Parallel()
	hub := NewEventHub()
	defer hub.Close()

	sub := hub.Subscribe("participation:1", "a")
	require.Equal(t, 1, hub.SubscriberCount("participation:1"))

	hub.Unsubscribe("participation:1", "a")
	assert.Equal(t, 0, hub.SubscriberCount("participation:1"))

	_, open := <-sub.Events
	assert.False(t, open)
	_, open = <-sub.Done
	assert.False(t, open)

	// Publishing after unsubscribe is a no-op
	hub.Publish(NewParticipationEvent(EventSample, "participation:1", nil))
}

func TestEventHub_FullBufferDropsEvents(t *testing.T) {
	t.Parallel()
	hub := NewEventHub()
	defer hub.Close()

	sub := hub.Subscribe("participation:1", "slow")
	for i := 0; i < 150; i++ {
		hub.Publish(NewParticipationEvent(EventSample, "participation:1", i))
	}
	assert.Len(t, sub.Events, 100)
}

func TestEventHub_Heartbeat(t *testing.T) {
	t.Parallel()
	hub := newEventHub(10 * time.Millisecond)
	defer hub.Close()

	sub := hub.Subscribe("participation:1", "a")

	select {
	case ev := <-sub.Events:
		assert.Equal(t, EventHeartbeat, ev.Type)
		assert.Equal(t, "participation:1", ev.ParticipationID)
	case <-time.After(time.Second):
		t.Fatal("expected a heartbeat")
	}
}

func TestEventHub_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewEventHub()
	sub := hub.Subscribe("participation:1", "a")

	hub.Close()
	hub.Close()

	_, open := <-sub.Done
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount("participation:1"))
}
