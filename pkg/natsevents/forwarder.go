// Package natsevents forwards query lifecycle events to NATS subjects.
package natsevents

import (
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by the forwarder.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// DefaultEvents are forwarded unless WithEvents says otherwise. paramAdded is
// left out since it fires once per query parameter.
var DefaultEvents = []string{
	jsonapi.EventPreFetch,
	jsonapi.EventPostFetch,
	jsonapi.EventResultSetReady,
}

// Forwarder publishes EventBus events as JSON messages on
// "<prefix>.<event name>".
type Forwarder struct {
	publisher Publisher
	prefix    string
	events    []string
	logger    jsonapi.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithSubjectPrefix replaces the default "jsonapi.events" prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(f *Forwarder) {
		f.prefix = prefix
	}
}

// WithEvents selects the forwarded event names. jsonapi.EventAny forwards all.
func WithEvents(names ...string) Option {
	return func(f *Forwarder) {
		f.events = names
	}
}

// WithLogger sets the logger used for publish failures.
func WithLogger(logger jsonapi.Logger) Option {
	return func(f *Forwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a forwarder publishing through publisher.
func New(publisher Publisher, opts ...Option) *Forwarder {
	f := &Forwarder{
		publisher: publisher,
		prefix:    constants.NATSSubjectPrefix,
		events:    DefaultEvents,
		logger:    jsonapi.NopLogger{},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Connect dials a NATS server with the client's connection name.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{nats.Name("jsonapi-client")}, opts...)

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return conn, nil
}

// Subject returns the subject an event name is published on.
func (f *Forwarder) Subject(name string) string {
	return f.prefix + "." + name
}

// Attach subscribes the forwarder to bus and returns a detach function.
func (f *Forwarder) Attach(bus *jsonapi.EventBus) func() {
	unsubscribers := make([]func(), 0, len(f.events))

	for _, name := range f.events {
		unsubscribers = append(unsubscribers, bus.Subscribe(name, f.Forward))
	}

	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

// Forward publishes a single event and logs failures.
func (f *Forwarder) Forward(event jsonapi.Event) {
	err := f.Publish(event)
	if err != nil {
		f.logger.Warn("Failed to forward event", map[string]interface{}{
			"event": event.Name,
			"error": err.Error(),
		})
	}
}

// Publish encodes and publishes event.
func (f *Forwarder) Publish(event jsonapi.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Name, err)
	}

	err = f.publisher.Publish(f.Subject(event.Name), payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Name, err)
	}

	return nil
}
