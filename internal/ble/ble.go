// Package ble provides the BLE sensor link with hardware abstraction.
// The real implementation uses BlueZ via tinygo.org/x/bluetooth.
// The fake implementation allows testing without a radio.
package ble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultDeviceName is the advertised name of the vibration sensor.
const DefaultDeviceName = "Nano33BLE_Vibration"

var (
	// ErrNotFound indicates discovery timed out without seeing the device.
	ErrNotFound = errors.New("ble: device not found")

	// ErrNoDevice indicates Connect was called with no discovered device.
	ErrNoDevice = errors.New("ble: no discovered device")
)

// Link is the sensor transport. Discover caches the device identity; Forget
// drops it (rediscovery). Connect/IsConnected/Disconnect satisfy link.Conn.
// The notification handler and loss handler are registered once, before the
// first Connect.
type Link interface {
	// Discover searches for the device by advertised name, caching its
	// identity on success. Returns ErrNotFound on timeout.
	Discover(ctx context.Context, timeout time.Duration) error

	// HasDevice reports whether a device identity is cached.
	HasDevice() bool

	// Forget discards the cached device identity.
	Forget()

	// Subscribe registers the handler invoked with each raw notification
	// payload. Must be called before Connect.
	Subscribe(fn func(data []byte))

	// OnLoss registers the handler invoked when an established connection
	// drops.
	OnLoss(fn func())

	Connect() error
	IsConnected() bool
	Disconnect() error
}

// DecodeMagnitude interprets a notification payload as a little-endian
// 32-bit IEEE-754 float. Wrong-length and non-finite payloads are decode
// errors; the caller skips that notification and continues.
func DecodeMagnitude(data []byte) (float64, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("ble: payload is %d bytes, want 4", len(data))
	}
	f := float64(math.Float32frombits(binary.LittleEndian.Uint32(data)))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("ble: non-finite magnitude %v", f)
	}
	return f, nil
}

// EncodeMagnitude is the inverse of DecodeMagnitude; used by test doubles to
// produce wire-format notifications.
func EncodeMagnitude(m float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(m))
	return buf
}
