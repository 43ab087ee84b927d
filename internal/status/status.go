// Package status provides a thread-safe status tracker for the
// vibration-sense daemon. It is read by the HTTP status handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/vibration-sense/internal/link"
	"github.com/sweeney/vibration-sense/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceName       string
	Broker           string
	ScanTimeoutMs    int64
	ReconnectDelayMs int64
	KeepaliveMs      int64
	HTTPAddr         string
	HighThreshold    float64
	LowThreshold     float64
	QuietTicks       int
	WindowSize       int
}

// LinkStatus is a point-in-time view of one supervised link.
type LinkStatus struct {
	State    link.State
	Attempts int
}

// Counters holds the non-detector counters the bridge accumulates.
type Counters struct {
	SkippedPublishes int
	DecodeErrors     int
	Commands         int
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// safe to use after the lock is released.
type Snapshot struct {
	Vibration logic.State
	Magnitude float64
	Ready     bool
	Events    logic.EventCounts
	Counters  Counters
	Sensor    LinkStatus
	Cloud     LinkStatus
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Vibration: logic.StateIdle,
			StartTime: startTime,
			Config:    cfg,
			Sensor:    LinkStatus{State: link.StateDisconnected},
			Cloud:     LinkStatus{State: link.StateDisconnected},
		},
	}
}

// Update sets the detector-derived state. Called on every analyzed sample.
func (t *Tracker) Update(vibration logic.State, magnitude float64, ready bool, events logic.EventCounts) {
	t.mu.Lock()
	t.snap.Vibration = vibration
	t.snap.Magnitude = magnitude
	t.snap.Ready = ready
	t.snap.Events = events
	t.mu.Unlock()
}

// SetSensorLink sets the sensor link status.
func (t *Tracker) SetSensorLink(state link.State, attempts int) {
	t.mu.Lock()
	t.snap.Sensor = LinkStatus{State: state, Attempts: attempts}
	t.mu.Unlock()
}

// SetCloudLink sets the cloud link status.
func (t *Tracker) SetCloudLink(state link.State, attempts int) {
	t.mu.Lock()
	t.snap.Cloud = LinkStatus{State: state, Attempts: attempts}
	t.mu.Unlock()
}

// AddSkippedPublish counts a state transition dropped because the cloud link
// was down.
func (t *Tracker) AddSkippedPublish() {
	t.mu.Lock()
	t.snap.Counters.SkippedPublishes++
	t.mu.Unlock()
}

// AddDecodeError counts a discarded malformed notification.
func (t *Tracker) AddDecodeError() {
	t.mu.Lock()
	t.snap.Counters.DecodeErrors++
	t.mu.Unlock()
}

// AddCommand counts an inbound cloud command.
func (t *Tracker) AddCommand() {
	t.mu.Lock()
	t.snap.Counters.Commands++
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
