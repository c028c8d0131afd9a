package events

import "time"

// Published records one Publish call.
type Published struct {
	Name    Name
	Payload Payload
}

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains all location events that were published.
	Events []Published

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
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the location event.
func (f *FakePublisher) Publish(name Name, payload Payload) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, Published{Name: name, Payload: payload})

	data, err := FormatPayload(time.Now(), name, payload)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, data)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	data, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, data)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Names returns the event names in publish order.
func (f *FakePublisher) Names() []Name {
	names := make([]Name, len(f.Events))
	for i, e := range f.Events {
		names[i] = e.Name
	}
	return names
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
