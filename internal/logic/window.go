package logic

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned by Stdev until the window has filled.
var ErrInsufficientData = errors.New("window: not enough samples")

// Window is a fixed-capacity FIFO of recent magnitude samples.
// Not safe for concurrent use; it is owned by a single Detector.
type Window struct {
	buf      []float64
	capacity int
	head     int // next write position
	count    int
}

// NewWindow creates a Window holding up to capacity samples.
func NewWindow(capacity int) *Window {
	return &Window{
		buf:      make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(v float64) {
	// Overwrite oldest: head is already pointing at it when full.
	w.buf[w.head] = v
	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.count
}

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool {
	return w.count == w.capacity
}

// Stdev returns the unbiased sample standard deviation of the window
// contents. Returns ErrInsufficientData until the window is full, so the
// statistic is always over exactly capacity samples.
func (w *Window) Stdev() (float64, error) {
	if !w.Full() {
		return 0, ErrInsufficientData
	}

	var sum float64
	for _, v := range w.buf {
		sum += v
	}
	mean := sum / float64(w.count)

	var sq float64
	for _, v := range w.buf {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(w.count-1)), nil
}
