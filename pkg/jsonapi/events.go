package jsonapi

import (
	"sync"
	"time"
)

// Event names emitted by queries.
const (
	EventParamAdded     = "paramAdded"
	EventPreFetch       = "preFetch"
	EventPostFetch      = "postFetch"
	EventResultSetReady = "resultSetReady"

	// EventAny subscribes a listener to every event.
	EventAny = "*"
)

// Event is delivered to listeners.
type Event struct {
	Name    string         `json:"name"`
	QueryID string         `json:"queryId,omitempty"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data,omitempty"`
}

// Listener receives events synchronously on the emitting goroutine.
type Listener func(Event)

// ListenerID identifies a registered listener.
type ListenerID int

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// EventBus is a small synchronous publish/subscribe hub.
type EventBus struct {
	mu        sync.RWMutex
	lastID    ListenerID
	listeners map[string][]listenerEntry
	names     map[ListenerID]string
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[string][]listenerEntry),
		names:     make(map[ListenerID]string),
	}
}

// On registers fn for the named event and returns its id.
func (b *EventBus) On(name string, fn Listener) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	b.listeners[name] = append(b.listeners[name], listenerEntry{id: b.lastID, fn: fn})
	b.names[b.lastID] = name

	return b.lastID
}

// Subscribe registers fn and returns a function removing it again.
func (b *EventBus) Subscribe(name string, fn Listener) func() {
	id := b.On(name, fn)

	return func() { b.Off(id) }
}

// Off removes a listener. Unknown ids are ignored.
func (b *EventBus) Off(id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name, ok := b.names[id]
	if !ok {
		return
	}

	entries := b.listeners[name]
	kept := entries[:0:0]

	for _, entry := range entries {
		if entry.id != id {
			kept = append(kept, entry)
		}
	}

	b.listeners[name] = kept
	delete(b.names, id)
}

// Emit delivers event to the listeners of its name, then to EventAny listeners.
func (b *EventBus) Emit(event Event) {
	if b == nil {
		return
	}

	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	targets := append([]listenerEntry(nil), b.listeners[event.Name]...)
	targets = append(targets, b.listeners[EventAny]...)
	b.mu.RUnlock()

	for _, entry := range targets {
		entry.fn(event)
	}
}
