package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/vibration-sense/internal/status"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Vibration     string     `json:"vibration"`
	Magnitude     float64    `json:"magnitude"`
	Ready         bool       `json:"ready"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Sensor        LinkJSON   `json:"sensor"`
	Cloud         LinkJSON   `json:"cloud"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// LinkJSON reports one supervised link's state.
type LinkJSON struct {
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
}

// CountsJSON is the JSON representation of the daemon counters.
type CountsJSON struct {
	Started          int `json:"vibration_started"`
	Stopped          int `json:"vibration_stopped"`
	SkippedPublishes int `json:"skipped_publishes"`
	DecodeErrors     int `json:"decode_errors"`
	Commands         int `json:"commands"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceName       string  `json:"device_name"`
	Broker           string  `json:"broker"`
	ScanTimeoutMs    int64   `json:"scan_timeout_ms"`
	ReconnectDelayMs int64   `json:"reconnect_delay_ms"`
	KeepaliveMs      int64   `json:"keepalive_ms"`
	HTTPAddr         string  `json:"http_addr"`
	HighThreshold    float64 `json:"high_threshold"`
	LowThreshold     float64 `json:"low_threshold"`
	QuietTicks       int     `json:"quiet_ticks"`
	WindowSize       int     `json:"window_size"`
}

func formatJSON(snap status.Snapshot) []byte {
	sj := StatusJSON{
		Status: StatusInner{
			Vibration:     string(snap.Vibration),
			Magnitude:     snap.Magnitude,
			Ready:         snap.Ready,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			Sensor:        LinkJSON{State: string(snap.Sensor.State), Attempts: snap.Sensor.Attempts},
			Cloud:         LinkJSON{State: string(snap.Cloud.State), Attempts: snap.Cloud.Attempts},
			Counts: CountsJSON{
				Started:          snap.Events.Started,
				Stopped:          snap.Events.Stopped,
				SkippedPublishes: snap.Counters.SkippedPublishes,
				DecodeErrors:     snap.Counters.DecodeErrors,
				Commands:         snap.Counters.Commands,
			},
			Config: ConfigJSON{
				DeviceName:       snap.Config.DeviceName,
				Broker:           snap.Config.Broker,
				ScanTimeoutMs:    snap.Config.ScanTimeoutMs,
				ReconnectDelayMs: snap.Config.ReconnectDelayMs,
				KeepaliveMs:      snap.Config.KeepaliveMs,
				HTTPAddr:         snap.Config.HTTPAddr,
				HighThreshold:    snap.Config.HighThreshold,
				LowThreshold:     snap.Config.LowThreshold,
				QuietTicks:       snap.Config.QuietTicks,
				WindowSize:       snap.Config.WindowSize,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
