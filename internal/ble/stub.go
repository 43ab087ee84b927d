//go:build !linux

package ble

import (
	"context"
	"errors"
	"time"
)

// RealLink is not available on non-Linux platforms.
type RealLink struct{}

// NewRealLink returns a link whose operations fail on non-Linux platforms.
func NewRealLink(name string) *RealLink {
	return &RealLink{}
}

var errUnsupported = errors.New("ble: not supported on this platform (requires Linux/BlueZ)")

func (l *RealLink) Discover(ctx context.Context, timeout time.Duration) error {
	return errUnsupported
}

func (l *RealLink) HasDevice() bool { return false }

func (l *RealLink) Forget() {}

func (l *RealLink) Subscribe(fn func(data []byte)) {}

func (l *RealLink) OnLoss(fn func()) {}

func (l *RealLink) Connect() error { return errUnsupported }

func (l *RealLink) IsConnected() bool { return false }

func (l *RealLink) Disconnect() error { return nil }
