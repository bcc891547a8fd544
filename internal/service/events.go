package service

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Participation events
	EventSample       EventType = "participation.sample"
	EventArrived      EventType = "participation.arrived"
	EventAnswering    EventType = "participation.answering"
	EventAnswer       EventType = "participation.answer"
	EventViolation    EventType = "participation.violation"
	EventDisqualified EventType = "participation.disqualified"
	EventCompleted    EventType = "participation.completed"
	EventCancelled    EventType = "participation.cancelled"

	// System events
	EventHeartbeat EventType = "heartbeat"
)

// Event is a live update pushed to the Mini-App
type Event struct {
	Type            EventType   `json:"type"`
	Data            interface{} `json:"data"`
	Timestamp       time.Time   `json:"timestamp"`
	ParticipationID string      `json:"-"` // routing only
}

// NewParticipationEvent creates an event for one participation stream
func NewParticipationEvent(eventType EventType, participationID string, data interface{}) *Event {
	return &Event{
		Type:            eventType,
		ParticipationID: participationID,
		Data:            data,
		Timestamp:       time.Now().UTC(),
	}
}

// Subscriber represents a connected stream client
type Subscriber struct {
	ID              string
	ParticipationID string
	Events          chan *Event
	Done            chan struct{}
}

// EventHub manages stream subscriptions and event broadcasting
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*Subscriber // participationID -> subscriberID -> subscriber
	heartbeat   *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return newEventHub(30 * time.Second)
}

func newEventHub(heartbeatEvery time.Duration) *EventHub {
	hub := &EventHub{
		subscribers: make(map[string]map[string]*Subscriber),
		done:        make(chan struct{}),
	}
	hub.heartbeat = time.NewTicker(heartbeatEvery)
	go hub.sendHeartbeats()
	return hub
}

// Subscribe adds a new subscriber for a participation
func (h *EventHub) Subscribe(participationID, subscriberID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:              subscriberID,
		ParticipationID: participationID,
		Events:          make(chan *Event, 100), // Buffer to prevent blocking
		Done:            make(chan struct{}),
	}

	if h.subscribers[participationID] == nil {
		h.subscribers[participationID] = make(map[string]*Subscriber)
	}
	h.subscribers[participationID][subscriberID] = sub

	return sub
}

// Unsubscribe removes a subscriber
func (h *EventHub) Unsubscribe(participationID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subscribers[participationID]; ok {
		if sub, ok := subs[subscriberID]; ok {
			close(sub.Done)
			close(sub.Events)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(h.subscribers, participationID)
		}
	}
}

// Publish sends an event to all subscribers of a participation
func (h *EventHub) Publish(event *Event) {
	if event == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[event.ParticipationID]
	if !ok {
		return
	}

	for _, sub := range subs {
		select {
		case sub.Events <- event:
		default:
			// Buffer full, skip this subscriber
		}
	}
}

// sendHeartbeats sends periodic heartbeats to all subscribers
func (h *EventHub) sendHeartbeats() {
	for {
		select {
		case <-h.heartbeat.C:
			h.mu.RLock()
			for participationID, subs := range h.subscribers {
				event := NewParticipationEvent(EventHeartbeat, participationID, nil)
				for _, sub := range subs {
					select {
					case sub.Events <- event:
					default:
					}
				}
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the event hub and disconnects every subscriber
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.heartbeat.Stop()

		h.mu.Lock()
		defer h.mu.Unlock()

		for participationID, subs := range h.subscribers {
			for _, sub := range subs {
				close(sub.Done)
				close(sub.Events)
			}
			delete(h.subscribers, participationID)
		}
	})
}

// SubscriberCount returns the number of subscribers for a participation
func (h *EventHub) SubscriberCount(participationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[participationID]; ok {
		return len(subs)
	}
	return 0
}
