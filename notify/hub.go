// Package notify fans "something changed" signals out to subscribed views.
// Events carry no payload; subscribers re-read what they display.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

// Subscription is the handle returned by Subscribe. C is closed by Unsubscribe.
type Subscription struct {
	ID string
	C  <-chan Event

	c      chan Event
	topics map[string]bool
}

func (s *Subscription) wants(topic string) bool {
	return len(s.topics) == 0 || s.topics[topic]
}

type Hub struct {
	mu    sync.RWMutex
	subs  map[string]*Subscription
	relay func(topic string)
	now   func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: map[string]*Subscription{}, now: time.Now}
}

// Subscribe registers interest in topics, or in every topic when none are given.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	c := make(chan Event, 1)
	sub := &Subscription{ID: uuid.NewString(), C: c, c: c, topics: map[string]bool{}}
	for _, t := range topics {
		sub.topics[t] = true
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe releases the handle. Calling it twice is harmless.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.c)
}

// SetRelay installs a hook called for every locally published topic.
func (h *Hub) SetRelay(relay func(topic string)) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Publish delivers locally and hands the topic to the relay, if any.
func (h *Hub) Publish(topic string) {
	h.Deliver(topic)
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		relay(topic)
	}
}

// Deliver notifies local subscribers only. A subscriber that has not drained
// its previous event gets the two coalesced into one.
func (h *Hub) Deliver(topic string) {
	ev := Event{Topic: topic, At: h.now()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.c <- ev:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
