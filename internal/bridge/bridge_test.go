package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/vibration-sense/internal/ble"
	"github.com/sweeney/vibration-sense/internal/cloud"
	"github.com/sweeney/vibration-sense/internal/link"
	"github.com/sweeney/vibration-sense/internal/logic"
	"github.com/sweeney/vibration-sense/internal/status"
)

func newTestBridge(t *testing.T) (*Bridge, *ble.FakeLink, *cloud.FakeLink, *status.Tracker) {
	t.Helper()
	sensor := ble.NewFakeLink()
	cl := cloud.NewFakeLink()
	detector := logic.NewDetector(logic.HighThreshold, logic.LowThreshold, logic.QuietTicks)
	tracker := status.NewTracker(time.Now(), status.Config{})
	b := New(sensor, cl, detector, tracker, Config{
		ReconnectDelay: time.Millisecond,
		ScanTimeout:    time.Millisecond,
		Keepalive:      time.Millisecond,
	})
	return b, sensor, cl, tracker
}

func TestSensorConnectFlow(t *testing.T) {
	b, sensor, _, tracker := newTestBridge(t)

	b.ensureSensor(context.Background())

	if sensor.Discovers != 1 {
		t.Errorf("expected 1 discovery, got %d", sensor.Discovers)
	}
	if !sensor.IsConnected() {
		t.Error("expected sensor connected")
	}
	if !b.sensorSup.Connected() {
		t.Error("expected supervisor connected")
	}
	if snap := tracker.Snapshot(); snap.Sensor.State != link.StateConnected {
		t.Errorf("tracker sensor state: got %q", snap.Sensor.State)
	}
}

func TestSensorConnectedShortCircuits(t *testing.T) {
	b, sensor, _, _ := newTestBridge(t)

	for i := 0; i < 3; i++ {
		b.ensureSensor(context.Background())
	}
	if sensor.Connects != 1 {
		t.Errorf("expected 1 connect, got %d", sensor.Connects)
	}
	if sensor.Discovers != 1 {
		t.Errorf("expected 1 discovery, got %d", sensor.Discovers)
	}
}

func TestSensorRediscoveryAfterMaxAttempts(t *testing.T) {
	b, sensor, _, _ := newTestBridge(t)
	sensor.ConnectError = errors.New("connect refused")

	// First pass discovers, then each pass burns one attempt.
	for i := 0; i < link.MaxAttempts; i++ {
		b.ensureSensor(context.Background())
	}
	if got := b.sensorSup.Attempts(); got != link.MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", link.MaxAttempts, got)
	}
	if sensor.Forgets != 0 {
		t.Fatalf("rediscovery triggered early: %d forgets", sensor.Forgets)
	}

	// Budget exhausted: next pass forgets the device and rediscovers.
	b.ensureSensor(context.Background())
	if sensor.Forgets != 1 {
		t.Errorf("expected 1 forget, got %d", sensor.Forgets)
	}
	if sensor.Discovers != 2 {
		t.Errorf("expected 2 discoveries, got %d", sensor.Discovers)
	}
	if got := b.sensorSup.Attempts(); got != 1 {
		t.Errorf("expected attempts restarted at 1 after rediscovery, got %d", got)
	}
}

func TestSensorDiscoveryFailureIsRetried(t *testing.T) {
	b, sensor, _, _ := newTestBridge(t)
	sensor.DiscoverError = errors.New("not found")

	b.ensureSensor(context.Background())
	b.ensureSensor(context.Background())

	if sensor.Discovers != 2 {
		t.Errorf("expected 2 discovery attempts, got %d", sensor.Discovers)
	}
	if sensor.Connects != 0 {
		t.Errorf("expected no connect without device, got %d", sensor.Connects)
	}

	sensor.DiscoverError = nil
	b.ensureSensor(context.Background())
	if !sensor.IsConnected() {
		t.Error("expected connected once discovery succeeds")
	}
}

func TestSensorLossTriggersReconnectWithoutRediscovery(t *testing.T) {
	b, sensor, _, _ := newTestBridge(t)
	b.ensureSensor(context.Background())

	sensor.TriggerLoss()
	if b.sensorSup.Connected() {
		t.Fatal("expected supervisor disconnected after loss")
	}

	b.ensureSensor(context.Background())
	if !sensor.IsConnected() {
		t.Error("expected reconnected")
	}
	if sensor.Discovers != 1 {
		t.Errorf("loss must not force rediscovery, got %d discoveries", sensor.Discovers)
	}
}

func TestCloudKeepalive(t *testing.T) {
	b, _, cl, tracker := newTestBridge(t)

	b.pumpCloud()
	if !cl.IsConnected() {
		t.Fatal("expected cloud connected")
	}
	if cl.Pumps != 1 {
		t.Errorf("expected 1 pump, got %d", cl.Pumps)
	}

	// A pump failure marks the link lost; the next pass reconnects.
	cl.PumpError = errors.New("session closed")
	b.pumpCloud()
	if b.cloudSup.Connected() {
		t.Fatal("expected supervisor disconnected after pump failure")
	}
	if snap := tracker.Snapshot(); snap.Cloud.State != link.StateDisconnected {
		t.Errorf("tracker cloud state: got %q", snap.Cloud.State)
	}

	cl.PumpError = nil
	b.pumpCloud()
	if !b.cloudSup.Connected() {
		t.Error("expected reconnected")
	}
	if cl.Connects != 2 {
		t.Errorf("expected 2 connects, got %d", cl.Connects)
	}
}

func TestEndToEndSpikePublishes(t *testing.T) {
	b, sensor, cl, _ := newTestBridge(t)
	b.ensureSensor(context.Background())
	b.pumpCloud()

	// Warm-up: 9 samples, then a 10th filling the window with stdev 0.
	for i := 0; i < 10; i++ {
		sensor.InjectMagnitude(1.0)
	}
	if len(cl.States) != 0 {
		t.Fatalf("expected no publishes during warm-up/quiet, got %d", len(cl.States))
	}

	sensor.InjectMagnitude(5.0)
	if len(cl.States) != 1 {
		t.Fatalf("expected 1 publish after spike, got %d", len(cl.States))
	}
	got := cl.States[0]
	if !got.VibrationDetected {
		t.Error("expected vibrationDetected=true")
	}
	if got.VibrationMagnitude != 5.0 {
		t.Errorf("expected vibrationMagnitude=5.0, got %g", got.VibrationMagnitude)
	}
}

func TestPublishSkippedWhenCloudDown(t *testing.T) {
	b, sensor, cl, tracker := newTestBridge(t)
	b.ensureSensor(context.Background())
	// Cloud never connected.

	for i := 0; i < 10; i++ {
		sensor.InjectMagnitude(1.0)
	}
	sensor.InjectMagnitude(5.0)

	if len(cl.States) != 0 {
		t.Fatalf("expected no publish while cloud down, got %d", len(cl.States))
	}
	snap := tracker.Snapshot()
	if snap.Counters.SkippedPublishes != 1 {
		t.Errorf("expected 1 skipped publish, got %d", snap.Counters.SkippedPublishes)
	}
	// The event itself still happened.
	if snap.Events.Started != 1 {
		t.Errorf("expected 1 start event, got %d", snap.Events.Started)
	}
}

func TestStopEventPublishesFalse(t *testing.T) {
	b, sensor, cl, _ := newTestBridge(t)
	b.ensureSensor(context.Background())
	b.pumpCloud()

	for i := 0; i < 10; i++ {
		sensor.InjectMagnitude(1.0)
	}
	sensor.InjectMagnitude(5.0)

	// Flush the spike from the window, then run down the quiet countdown.
	for i := 0; i < logic.WindowSize-1+logic.QuietTicks; i++ {
		sensor.InjectMagnitude(1.0)
	}

	if len(cl.States) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(cl.States))
	}
	stop := cl.States[1]
	if stop.VibrationDetected {
		t.Error("expected vibrationDetected=false")
	}
	if stop.VibrationMagnitude != 1.0 {
		t.Errorf("expected vibrationMagnitude=1.0, got %g", stop.VibrationMagnitude)
	}
}

func TestMalformedNotificationIsSkipped(t *testing.T) {
	b, sensor, _, tracker := newTestBridge(t)
	b.ensureSensor(context.Background())

	for i := 0; i < 10; i++ {
		sensor.InjectMagnitude(1.0)
	}
	sensor.Inject([]byte{0x01, 0x02})  // wrong length
	sensor.InjectMagnitude(1.0)        // stream continues

	snap := tracker.Snapshot()
	if snap.Counters.DecodeErrors != 1 {
		t.Errorf("expected 1 decode error, got %d", snap.Counters.DecodeErrors)
	}
	if snap.Magnitude != 1.0 {
		t.Errorf("expected last magnitude 1.0, got %g", snap.Magnitude)
	}
}

func TestCommandIsLoggedOnly(t *testing.T) {
	b, sensor, cl, tracker := newTestBridge(t)
	b.ensureSensor(context.Background())
	b.pumpCloud()

	for i := 0; i < 10; i++ {
		sensor.InjectMagnitude(1.0)
	}

	cl.InjectCommand("identify", map[string]any{"duration": 5.0})

	snap := tracker.Snapshot()
	if snap.Counters.Commands != 1 {
		t.Errorf("expected 1 command, got %d", snap.Counters.Commands)
	}
	// No state mutation: detector still idle, nothing published.
	if snap.Vibration != logic.StateIdle {
		t.Errorf("expected IDLE, got %q", snap.Vibration)
	}
	if len(cl.States) != 0 {
		t.Errorf("expected no publishes, got %d", len(cl.States))
	}
}

func TestRunShutsDownCleanly(t *testing.T) {
	b, sensor, cl, _ := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	// Let both loops establish their links.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.sensorSup.Connected() && b.cloudSup.Connected() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !b.sensorSup.Connected() || !b.cloudSup.Connected() {
		t.Fatal("links did not come up")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if sensor.Disconnects == 0 {
		t.Error("expected sensor disconnected at shutdown")
	}
	if !cl.Closed {
		t.Error("expected cloud closed at shutdown")
	}
}
