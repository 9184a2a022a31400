package mqtt

import (
	"sync"

	"github.com/sweeney/traffic-signal/internal/logic"
)

// FakePublisher records published events for test assertions.
// Read the exported slices only after the code under test has finished publishing.
type FakePublisher struct {
	mu sync.Mutex

	// Events contains all signal events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler func(logic.Command)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the signal event.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// EventTypes returns the types of the published signal events in order.
func (f *FakePublisher) EventTypes() []logic.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		types[i] = e.Type
	}
	return types
}

// Subscribe records the command handler.
func (f *FakePublisher) Subscribe(handler func(logic.Command)) error {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// Deliver simulates a message arriving on the command topic.
func (f *FakePublisher) Deliver(payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(cmd)
	}
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
	f.handler = nil
}
