package logic

// Detector derives a binary vibration signal from a stream of noisy
// magnitude samples. Entry is gated by HighThreshold on the windowed
// standard deviation; exit requires QuietTicks consecutive samples below
// LowThreshold, so the state cannot flap when the statistic hovers near a
// threshold.
type Detector struct {
	high       float64
	low        float64
	quietTicks int

	window        *Window
	state         State
	timer         int
	lastMagnitude float64
	eventCounts   EventCounts
}

// NewDetector creates a detector with the given thresholds and quiet
// countdown. Starts Idle with a full countdown and an empty window.
func NewDetector(high, low float64, quietTicks int) *Detector {
	return &Detector{
		high:       high,
		low:        low,
		quietTicks: quietTicks,
		window:     NewWindow(WindowSize),
		state:      StateIdle,
		timer:      quietTicks,
	}
}

// Analyze consumes one magnitude sample and reports whether it caused a
// state transition. During warm-up (window not yet full) no events are
// emitted regardless of input.
func (d *Detector) Analyze(magnitude float64) (Event, bool) {
	d.window.Push(magnitude)
	d.lastMagnitude = magnitude

	s, err := d.window.Stdev()
	if err != nil {
		// Still warming up.
		return Event{}, false
	}

	switch d.state {
	case StateIdle:
		if s > d.high {
			d.state = StateActive
			d.timer = d.quietTicks
			d.eventCounts.Started++
			return Event{Detected: true, Magnitude: magnitude}, true
		}

	case StateActive:
		if s < d.low {
			d.timer--
			if d.timer <= 0 {
				d.state = StateIdle
				d.timer = d.quietTicks
				d.eventCounts.Stopped++
				return Event{Detected: false, Magnitude: magnitude}, true
			}
		} else if d.timer < d.quietTicks {
			// Vibration resumed before the countdown expired; exit now
			// requires a fresh run of quiet samples.
			d.timer = d.quietTicks
		}
	}

	return Event{}, false
}

// State returns the current vibration state.
func (d *Detector) State() State {
	return d.state
}

// Ready reports whether the warm-up period is over.
func (d *Detector) Ready() bool {
	return d.window.Full()
}

// LastMagnitude returns the most recently analyzed sample.
func (d *Detector) LastMagnitude() float64 {
	return d.lastMagnitude
}

// EventCountsSnapshot returns a copy of the transition counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}
