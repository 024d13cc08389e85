package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-c:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func assertQuiet(t *testing.T, c <-chan Event) {
	t.Helper()
	select {
	case ev := <-c:
		t.Fatalf("unexpected event %q", ev.Topic)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSubscribeFiltersTopics(t *testing.T) {
	hub := NewHub()
	tables := hub.Subscribe(TopicTables)
	everything := hub.Subscribe()
	defer hub.Unsubscribe(tables)
	defer hub.Unsubscribe(everything)

	hub.Publish(TopicOrders)
	assertQuiet(t, tables.C)
	assert.Equal(t, TopicOrders, receive(t, everything.C).Topic)

	hub.Publish(TopicTables)
	assert.Equal(t, TopicTables, receive(t, tables.C).Topic)
	assert.Equal(t, TopicTables, receive(t, everything.C).Topic)
}

func TestSlowSubscriberIsCoalesced(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(TopicOrders)
	for i := 0; i < 10; i++ {
		hub.Publish(TopicOrders)
	}
	receive(t, sub.C)
	assertQuiet(t, sub.C)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	assert.Equal(t, 1, hub.Len())

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)
	assert.Equal(t, 0, hub.Len())

	_, ok := <-sub.C
	assert.False(t, ok)

	// publishing after unsubscribe must not panic on the closed channel
	hub.Publish(TopicTables)
}

func TestRelaySeesPublishNotDeliver(t *testing.T) {
	hub := NewHub()
	var mu sync.Mutex
	var relayed []string
	hub.SetRelay(func(topic string) {
		mu.Lock()
		relayed = append(relayed, topic)
		mu.Unlock()
	})

	hub.Publish(TopicTables)
	hub.Deliver(TopicOrders)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{TopicTables}, relayed)
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(TopicTables)
			hub.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(TopicTables)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Len())
}
