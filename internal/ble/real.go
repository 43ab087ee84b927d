//go:build linux

package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// GATT identifiers advertised by the sensor firmware.
var (
	serviceUUID        = bluetooth.New16BitUUID(0x180D)
	characteristicUUID = bluetooth.New16BitUUID(0x2A40)
)

// RealLink talks to the sensor over BlueZ.
type RealLink struct {
	adapter *bluetooth.Adapter
	name    string

	onData func([]byte)
	onLoss func()

	mu        sync.Mutex
	enabled   bool
	hasAddr   bool
	addr      bluetooth.Address
	device    bluetooth.Device
	connected bool
}

// NewRealLink creates a link that discovers the given advertised name on the
// default adapter.
func NewRealLink(name string) *RealLink {
	return &RealLink{
		adapter: bluetooth.DefaultAdapter,
		name:    name,
	}
}

// Subscribe registers the notification handler. Must be called before Connect.
func (l *RealLink) Subscribe(fn func(data []byte)) {
	l.onData = fn
}

// OnLoss registers the connection-loss handler. Must be called before Connect.
func (l *RealLink) OnLoss(fn func()) {
	l.onLoss = fn
}

func (l *RealLink) enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled {
		return nil
	}
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	l.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected {
			return
		}
		l.mu.Lock()
		wasConnected := l.connected
		l.connected = false
		l.mu.Unlock()
		if wasConnected && l.onLoss != nil {
			l.onLoss()
		}
	})
	l.enabled = true
	return nil
}

// Discover scans for the device by advertised name and caches its address.
func (l *RealLink) Discover(ctx context.Context, timeout time.Duration) error {
	if err := l.enable(); err != nil {
		return err
	}

	// Scan blocks until StopScan; bound it by the timeout and the context.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-time.After(timeout):
			l.adapter.StopScan()
		case <-ctx.Done():
			l.adapter.StopScan()
		case <-done:
		}
	}()

	var found bool
	var result bluetooth.ScanResult
	err := l.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if r.LocalName() != l.name {
			return
		}
		found = true
		result = r
		a.StopScan()
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	l.mu.Lock()
	l.addr = result.Address
	l.hasAddr = true
	l.mu.Unlock()
	return nil
}

// HasDevice reports whether a device address is cached.
func (l *RealLink) HasDevice() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasAddr
}

// Forget discards the cached device address so the next Discover starts from
// scratch.
func (l *RealLink) Forget() {
	l.mu.Lock()
	l.hasAddr = false
	l.mu.Unlock()
}

// Connect connects to the cached device and enables magnitude notifications.
func (l *RealLink) Connect() error {
	l.mu.Lock()
	hasAddr := l.hasAddr
	addr := l.addr
	l.mu.Unlock()
	if !hasAddr {
		return ErrNoDevice
	}

	dev, err := l.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr.String(), err)
	}

	svcs, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		dev.Disconnect()
		return fmt.Errorf("discover service %s: %w", serviceUUID.String(), err)
	}
	if len(svcs) == 0 {
		dev.Disconnect()
		return fmt.Errorf("service %s not present", serviceUUID.String())
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicUUID})
	if err != nil {
		dev.Disconnect()
		return fmt.Errorf("discover characteristic %s: %w", characteristicUUID.String(), err)
	}
	if len(chars) == 0 {
		dev.Disconnect()
		return fmt.Errorf("characteristic %s not present", characteristicUUID.String())
	}

	if err := chars[0].EnableNotifications(func(buf []byte) {
		if l.onData != nil {
			l.onData(buf)
		}
	}); err != nil {
		dev.Disconnect()
		return fmt.Errorf("enable notifications: %w", err)
	}

	l.mu.Lock()
	l.device = dev
	l.connected = true
	l.mu.Unlock()
	return nil
}

// IsConnected reports whether a connection is established.
func (l *RealLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Disconnect drops the connection. Safe to call when not connected.
func (l *RealLink) Disconnect() error {
	l.mu.Lock()
	connected := l.connected
	dev := l.device
	l.connected = false
	l.mu.Unlock()

	if !connected {
		return nil
	}
	if err := dev.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
