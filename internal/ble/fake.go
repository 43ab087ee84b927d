package ble

import (
	"context"
	"sync"
	"time"
)

// FakeLink is a test double for the sensor link. Notifications are injected
// manually with Inject; connection loss with TriggerLoss. Safe for
// concurrent use so tests can drive it alongside the reconnect loop.
type FakeLink struct {
	mu sync.Mutex

	// DiscoverError, if set, will be returned by Discover.
	DiscoverError error

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// DisconnectError, if set, will be returned by Disconnect.
	DisconnectError error

	// Call counters for assertions. Read them only while the link is not
	// being driven concurrently.
	Discovers   int
	Connects    int
	Disconnects int
	Forgets     int

	hasDevice bool
	connected bool
	onData    func([]byte)
	onLoss    func()
}

// NewFakeLink creates a FakeLink for testing.
func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

// SetDiscoverError rescripts the Discover result mid-test.
func (f *FakeLink) SetDiscoverError(err error) {
	f.mu.Lock()
	f.DiscoverError = err
	f.mu.Unlock()
}

// SetConnectError rescripts the Connect result mid-test.
func (f *FakeLink) SetConnectError(err error) {
	f.mu.Lock()
	f.ConnectError = err
	f.mu.Unlock()
}

// Discover records the call and caches a device unless DiscoverError is set.
func (f *FakeLink) Discover(ctx context.Context, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Discovers++
	if f.DiscoverError != nil {
		return f.DiscoverError
	}
	f.hasDevice = true
	return nil
}

// HasDevice reports whether a fake device is cached.
func (f *FakeLink) HasDevice() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasDevice
}

// Forget drops the cached fake device.
func (f *FakeLink) Forget() {
	f.mu.Lock()
	f.Forgets++
	f.hasDevice = false
	f.mu.Unlock()
}

// Subscribe stores the notification handler.
func (f *FakeLink) Subscribe(fn func(data []byte)) {
	f.mu.Lock()
	f.onData = fn
	f.mu.Unlock()
}

// OnLoss stores the loss handler.
func (f *FakeLink) OnLoss(fn func()) {
	f.mu.Lock()
	f.onLoss = fn
	f.mu.Unlock()
}

// Connect succeeds if a device is cached and ConnectError is unset.
func (f *FakeLink) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects++
	if !f.hasDevice {
		return ErrNoDevice
	}
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

// Disconnect drops the fake connection.
func (f *FakeLink) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Disconnects++
	f.connected = false
	return f.DisconnectError
}

// Inject delivers a raw notification payload to the subscribed handler on
// the caller's goroutine, like a real notification callback.
func (f *FakeLink) Inject(data []byte) {
	f.mu.Lock()
	fn := f.onData
	f.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// InjectMagnitude delivers a well-formed little-endian float32 notification.
func (f *FakeLink) InjectMagnitude(m float32) {
	f.Inject(EncodeMagnitude(m))
}

// TriggerLoss simulates the connection dropping mid-session.
func (f *FakeLink) TriggerLoss() {
	f.mu.Lock()
	f.connected = false
	fn := f.onLoss
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}
