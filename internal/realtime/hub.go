package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// Event describes one change to a resource, category or page.
type Event struct {
	Topic  string    `json:"topic"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

const subscriberBuffer = 32

// Hub fans change events out to subscribers. Slow subscribers drop events
// rather than block writers.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{}), now: time.Now}
}

// Subscription receives events for its topics on C until Close.
type Subscription struct {
	C <-chan Event

	hub    *Hub
	ch     chan Event
	mu     sync.RWMutex
	topics map[string]bool // empty means every topic
	once   sync.Once
}

// Subscribe registers a subscriber. No topics subscribes to everything.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, hub: h, ch: ch}
	s.SetTopics(topics)

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// SetTopics replaces the topic filter.
func (s *Subscription) SetTopics(topics []string) {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}
	s.mu.Lock()
	s.topics = set
	s.mu.Unlock()
}

func (s *Subscription) wants(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics) == 0 || s.topics[topic]
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Notify publishes an event to every interested subscriber.
func (h *Hub) Notify(topic, action, id string) {
	ev := Event{Topic: topic, Action: action, ID: id, At: h.now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			slog.Warn("realtime subscriber is lagging, event dropped", "topic", topic, "id", id)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
