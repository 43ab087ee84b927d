package cloud

import "sync"

// FakeLink records published state for test assertions. Safe for concurrent
// use so tests can drive it alongside the keep-alive loop.
type FakeLink struct {
	mu sync.Mutex

	// States contains all states that were published.
	States []State

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// PublishError, if set, will be returned by PublishState.
	PublishError error

	// PumpError, if set, will be returned by Pump.
	PumpError error

	// Call counters for assertions. Read them only while the link is not
	// being driven concurrently.
	Connects int
	Pumps    int

	// Closed tracks if Close was called.
	Closed bool

	connected bool
	onCommand func(name string, payload map[string]any)
}

// NewFakeLink creates a FakeLink for testing.
func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

// SetConnectError rescripts the Connect result mid-test.
func (f *FakeLink) SetConnectError(err error) {
	f.mu.Lock()
	f.ConnectError = err
	f.mu.Unlock()
}

// SetPumpError rescripts the Pump result mid-test.
func (f *FakeLink) SetPumpError(err error) {
	f.mu.Lock()
	f.PumpError = err
	f.mu.Unlock()
}

// Connect succeeds unless ConnectError is set.
func (f *FakeLink) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects++
	if f.ConnectError != nil {
		return f.ConnectError
	}
	f.connected = true
	return nil
}

// IsConnected reports the fake connection state.
func (f *FakeLink) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// PublishState records the state.
func (f *FakeLink) PublishState(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, s)
	return nil
}

// PublishedStates returns a copy of the recorded states.
func (f *FakeLink) PublishedStates() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]State, len(f.States))
	copy(out, f.States)
	return out
}

// Pump counts invocations and returns PumpError if set.
func (f *FakeLink) Pump() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pumps++
	if f.PumpError != nil {
		f.connected = false
		return f.PumpError
	}
	return nil
}

// OnCommand stores the command handler.
func (f *FakeLink) OnCommand(fn func(name string, payload map[string]any)) {
	f.mu.Lock()
	f.onCommand = fn
	f.mu.Unlock()
}

// Close marks the link closed.
func (f *FakeLink) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.connected = false
	f.mu.Unlock()
	return nil
}

// Drop simulates the session closing underneath the client.
func (f *FakeLink) Drop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

// InjectCommand delivers a command to the registered handler on the caller's
// goroutine, like a real inbound message.
func (f *FakeLink) InjectCommand(name string, payload map[string]any) {
	f.mu.Lock()
	fn := f.onCommand
	f.mu.Unlock()
	if fn != nil {
		fn(name, payload)
	}
}
