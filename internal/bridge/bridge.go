// Package bridge wires the sensor link, the vibration detector, and the
// cloud link together: notifications flow into the detector, detector events
// flow out as best-effort cloud publishes, and each link is supervised by
// its own reconnect loop.
package bridge

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sweeney/vibration-sense/internal/ble"
	"github.com/sweeney/vibration-sense/internal/cloud"
	"github.com/sweeney/vibration-sense/internal/link"
	"github.com/sweeney/vibration-sense/internal/logic"
	"github.com/sweeney/vibration-sense/internal/status"
)

// Default loop timings.
const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultScanTimeout    = 10 * time.Second
	DefaultKeepalive      = time.Second
)

// Config holds the bridge loop timings.
type Config struct {
	// ReconnectDelay is the sensor reconnect cadence.
	ReconnectDelay time.Duration
	// ScanTimeout bounds a single BLE discovery pass.
	ScanTimeout time.Duration
	// Keepalive is the cloud pump cadence.
	Keepalive time.Duration
}

// cloudConn adapts cloud.Link to link.Conn: the cloud transport names its
// teardown Close, while link.Conn expects Disconnect.
type cloudConn struct {
	cloud.Link
}

func (c cloudConn) Disconnect() error { return c.Close() }

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = DefaultScanTimeout
	}
	if c.Keepalive <= 0 {
		c.Keepalive = DefaultKeepalive
	}
	return c
}

// Bridge owns the detector and both link supervisors. The sensor and cloud
// links themselves are injected.
type Bridge struct {
	sensor   ble.Link
	cloud    cloud.Link
	detector *logic.Detector

	sensorSup *link.Supervisor
	cloudSup  *link.Supervisor

	tracker *status.Tracker // optional
	cfg     Config
}

// New creates a bridge and registers the notification, loss, and command
// handlers. The tracker may be nil.
func New(sensor ble.Link, cl cloud.Link, detector *logic.Detector, tracker *status.Tracker, cfg Config) *Bridge {
	b := &Bridge{
		sensor:    sensor,
		cloud:     cl,
		detector:  detector,
		sensorSup: link.NewSupervisor("sensor", sensor),
		cloudSup:  link.NewSupervisor("cloud", cloudConn{cl}),
		tracker:   tracker,
		cfg:       cfg.withDefaults(),
	}

	sensor.Subscribe(b.handleNotification)
	sensor.OnLoss(func() {
		b.sensorSup.NoteLoss()
		b.syncSensorStatus()
	})
	cl.OnCommand(b.handleCommand)

	return b
}

// Run starts the sensor reconnect loop and the cloud keep-alive loop, blocks
// until ctx is cancelled, then disconnects both links. Shutdown errors are
// logged, not escalated.
func (b *Bridge) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.sensorLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		b.cloudLoop(ctx)
	}()
	wg.Wait()

	if err := b.sensor.Disconnect(); err != nil {
		log.Printf("bridge: sensor disconnect: %v", err)
	}
	if err := b.cloud.Close(); err != nil {
		log.Printf("bridge: cloud close: %v", err)
	}
	log.Printf("bridge: stopped")
	return nil
}

// sensorLoop re-establishes the sensor link on a fixed cadence whenever it
// is down.
func (b *Bridge) sensorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.ReconnectDelay)
	defer ticker.Stop()

	for {
		b.ensureSensor(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ensureSensor makes one pass of the sensor connection policy: rediscover
// if the attempt budget is spent, discover if no device is cached, then
// attempt to connect.
func (b *Bridge) ensureSensor(ctx context.Context) {
	defer b.syncSensorStatus()

	if b.sensorSup.NeedsRediscovery() && b.sensor.HasDevice() {
		log.Printf("bridge: %d failed attempts, forgetting device and rediscovering", b.sensorSup.Attempts())
		b.sensor.Forget()
	}

	if !b.sensor.HasDevice() {
		if err := b.sensor.Discover(ctx, b.cfg.ScanTimeout); err != nil {
			log.Printf("bridge: discovery: %v", err)
			return
		}
		log.Printf("bridge: sensor device found")
		b.sensorSup.ResetAttempts()
	}

	b.sensorSup.EnsureConnected()
}

// cloudLoop pumps the cloud transport and re-asserts the connection on a
// ~1 second cadence.
func (b *Bridge) cloudLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Keepalive)
	defer ticker.Stop()

	for {
		b.pumpCloud()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pumpCloud makes one pass of the cloud keep-alive policy.
func (b *Bridge) pumpCloud() {
	defer b.syncCloudStatus()

	if !b.cloudSup.EnsureConnected() {
		return
	}
	if err := b.cloud.Pump(); err != nil {
		log.Printf("bridge: cloud pump: %v", err)
		b.cloudSup.NoteLoss()
	}
}

// handleNotification runs on the sensor's delivery goroutine. It must not
// block: decode and detector updates are pure in-memory work, and the
// publish path uses the transport's own bounded timeout.
func (b *Bridge) handleNotification(data []byte) {
	magnitude, err := ble.DecodeMagnitude(data)
	if err != nil {
		log.Printf("bridge: dropping notification: %v", err)
		if b.tracker != nil {
			b.tracker.AddDecodeError()
		}
		return
	}

	event, ok := b.detector.Analyze(magnitude)
	if b.tracker != nil {
		b.tracker.Update(b.detector.State(), magnitude, b.detector.Ready(), b.detector.EventCountsSnapshot())
	}
	if !ok {
		return
	}
	b.publish(event)
}

// publish forwards a detector event to the cloud, best-effort: if the cloud
// link is down the event is counted and dropped, never queued. The next
// transition re-derives the published state.
func (b *Bridge) publish(event logic.Event) {
	if event.Detected {
		log.Printf("bridge: vibration started (magnitude=%g)", event.Magnitude)
	} else {
		log.Printf("bridge: vibration stopped (magnitude=%g)", event.Magnitude)
	}

	if !b.cloudSup.Connected() {
		log.Printf("bridge: cloud disconnected, skipping state publish")
		if b.tracker != nil {
			b.tracker.AddSkippedPublish()
		}
		return
	}

	err := b.cloud.PublishState(cloud.State{
		VibrationDetected:  event.Detected,
		VibrationMagnitude: event.Magnitude,
	})
	if err != nil {
		// The keep-alive loop will notice an actual session loss.
		log.Printf("bridge: publish: %v", err)
		if b.tracker != nil {
			b.tracker.AddSkippedPublish()
		}
	}
}

// handleCommand logs inbound cloud commands. Fire-and-forget: commands do
// not mutate detector or link state.
func (b *Bridge) handleCommand(name string, payload map[string]any) {
	log.Printf("bridge: command received: %s %v", name, payload)
	if b.tracker != nil {
		b.tracker.AddCommand()
	}
}

func (b *Bridge) syncSensorStatus() {
	if b.tracker != nil {
		b.tracker.SetSensorLink(b.sensorSup.State(), b.sensorSup.Attempts())
	}
}

func (b *Bridge) syncCloudStatus() {
	if b.tracker != nil {
		b.tracker.SetCloudLink(b.cloudSup.State(), b.cloudSup.Attempts())
	}
}
