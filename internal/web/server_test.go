package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/vibration-sense/internal/link"
	"github.com/sweeney/vibration-sense/internal/logic"
	"github.com/sweeney/vibration-sense/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		DeviceName:       "Nano33BLE_Vibration",
		Broker:           "tls://broker.losant.com:8883",
		ScanTimeoutMs:    10000,
		ReconnectDelayMs: 5000,
		KeepaliveMs:      1000,
		HTTPAddr:         ":8080",
		HighThreshold:    logic.HighThreshold,
		LowThreshold:     logic.LowThreshold,
		QuietTicks:       logic.QuietTicks,
		WindowSize:       logic.WindowSize,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateActive, 5.0, true, logic.EventCounts{Started: 2, Stopped: 1})
	tr.SetSensorLink(link.StateConnected, 0)
	tr.SetCloudLink(link.StateDisconnected, 3)
	tr.AddSkippedPublish()

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Vibration != "ACTIVE" {
		t.Errorf("Vibration: got %q, want ACTIVE", sj.Status.Vibration)
	}
	if sj.Status.Magnitude != 5.0 {
		t.Errorf("Magnitude: got %g, want 5.0", sj.Status.Magnitude)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if sj.Status.Sensor.State != "CONNECTED" {
		t.Errorf("Sensor.State: got %q", sj.Status.Sensor.State)
	}
	if sj.Status.Cloud.State != "DISCONNECTED" || sj.Status.Cloud.Attempts != 3 {
		t.Errorf("Cloud: got %+v", sj.Status.Cloud)
	}
	if sj.Status.Counts.Started != 2 || sj.Status.Counts.Stopped != 1 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Counts.SkippedPublishes != 1 {
		t.Errorf("SkippedPublishes: got %d, want 1", sj.Status.Counts.SkippedPublishes)
	}
	if sj.Status.Config.DeviceName != "Nano33BLE_Vibration" {
		t.Errorf("Config.DeviceName: got %q", sj.Status.Config.DeviceName)
	}
	if sj.Status.Config.HighThreshold != logic.HighThreshold {
		t.Errorf("Config.HighThreshold: got %g", sj.Status.Config.HighThreshold)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateIdle, 0.5, true, logic.EventCounts{})
	tr.SetSensorLink(link.StateConnected, 0)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	html := string(body)

	for _, want := range []string{"Vibration Sense", "IDLE", "CONNECTED", "Nano33BLE_Vibration", "/index.json"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
