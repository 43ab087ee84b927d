// Package logic contains pure business logic for vibration detection.
// This package has NO external dependencies (no BLE, MQTT, OS, or time.Sleep).
// The detector advances one tick per incoming sample.
package logic

// Detection thresholds and timing, matching the deployed sensor firmware's
// magnitude scale.
const (
	// WindowSize is the number of recent samples the dispersion statistic
	// is computed over.
	WindowSize = 10

	// HighThreshold is the sample standard deviation above which vibration
	// is considered to have started.
	HighThreshold = 0.002

	// LowThreshold is the sample standard deviation below which a sample
	// counts as quiet. Kept below HighThreshold so the state cannot
	// oscillate around a single boundary.
	LowThreshold = 0.001

	// QuietTicks is the number of consecutive quiet samples required
	// before vibration is considered to have stopped.
	QuietTicks = 120
)

// State represents the detector's vibration state.
type State string

const (
	StateIdle   State = "IDLE"
	StateActive State = "ACTIVE"
)

// Event represents a vibration state transition to be published.
type Event struct {
	// Detected is true when vibration started, false when it stopped.
	Detected bool
	// Magnitude is the sample that triggered the transition.
	Magnitude float64
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	Started int
	Stopped int
}
