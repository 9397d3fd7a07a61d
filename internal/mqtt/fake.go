package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// States contains all state events that were published.
	States []StateEvent

	// Payloads contains the JSON payloads for state events.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishState.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// CommandCh is returned by Commands. Tests send into it.
	CommandCh chan Command
}

// NewFakePublisher creates a connected FakePublisher with a buffered command channel.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true, CommandCh: make(chan Command, 16)}
}

// PublishState records the state event.
func (f *FakePublisher) PublishState(event StateEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.States = append(f.States, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
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

// Commands returns CommandCh.
func (f *FakePublisher) Commands() <-chan Command {
	return f.CommandCh
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
