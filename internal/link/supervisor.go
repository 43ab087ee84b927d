// Package link provides a bounded-retry connection supervisor shared by the
// sensor and cloud transports. The supervisor never sleeps; the owning loop
// calls EnsureConnected on its own cadence.
package link

import (
	"log"
	"sync"
)

// MaxAttempts is the number of consecutive failed connection attempts after
// which the link partner is presumed gone and rediscovery is required.
const MaxAttempts = 5

// State represents the supervised connection state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

// Conn is the transport capability set the supervisor drives.
type Conn interface {
	Connect() error
	IsConnected() bool
	Disconnect() error
}

// Supervisor owns the connection state for a single transport. All
// transitions are driven by one goroutine (the owning reconnect loop);
// State and Connected are safe to read from others.
type Supervisor struct {
	name string
	conn Conn

	mu       sync.Mutex
	state    State
	attempts int
}

// NewSupervisor creates a supervisor for the given transport. The name is
// used only for logging.
func NewSupervisor(name string, conn Conn) *Supervisor {
	return &Supervisor{
		name:  name,
		conn:  conn,
		state: StateDisconnected,
	}
}

// EnsureConnected returns true immediately if the link is connected,
// otherwise makes a single connection attempt. Success resets the attempt
// counter; failure increments it.
func (s *Supervisor) EnsureConnected() bool {
	s.mu.Lock()
	if s.state == StateConnected && s.conn.IsConnected() {
		s.mu.Unlock()
		return true
	}
	s.state = StateConnecting
	s.mu.Unlock()

	// Connect may block on the transport's own timeout; don't hold the
	// lock across it.
	err := s.conn.Connect()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.attempts++
		s.state = StateDisconnected
		log.Printf("%s: connect attempt %d failed: %v", s.name, s.attempts, err)
		return false
	}
	s.attempts = 0
	s.state = StateConnected
	log.Printf("%s: connected", s.name)
	return true
}

// NeedsRediscovery reports whether the attempt budget is exhausted. The
// caller must discard any cached target identity, rediscover, and then call
// ResetAttempts before further connection attempts.
func (s *Supervisor) NeedsRediscovery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts >= MaxAttempts
}

// ResetAttempts clears the attempt counter after a successful rediscovery.
func (s *Supervisor) ResetAttempts() {
	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()
}

// NoteLoss records an externally detected link drop. The attempt counter is
// left alone: loss says nothing about whether the partner vanished.
func (s *Supervisor) NoteLoss() {
	s.mu.Lock()
	if s.state != StateDisconnected {
		log.Printf("%s: link lost", s.name)
	}
	s.state = StateDisconnected
	s.mu.Unlock()
}

// Connected reports whether the supervised link is currently connected.
// Safe to call from any goroutine.
func (s *Supervisor) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the consecutive failed attempt count.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
