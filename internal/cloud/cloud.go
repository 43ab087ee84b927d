// Package cloud provides Losant state publishing with abstraction for testing.
//
// Losant devices speak plain MQTT: state is published to
// losant/<device-id>/state and commands arrive on losant/<device-id>/command.
package cloud

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBroker is the Losant MQTT endpoint.
const DefaultBroker = "tls://broker.losant.com:8883"

// State is the device state reported on a vibration transition.
type State struct {
	VibrationDetected  bool
	VibrationMagnitude float64
}

// Link is the cloud transport. OnCommand must be registered before Connect.
// Pump is invoked periodically by the keep-alive loop to service the
// transport; a Pump error means the link was lost.
type Link interface {
	Connect() error
	IsConnected() bool

	// PublishState reports a state transition. Best-effort: callers skip
	// (not queue) publishes while disconnected.
	PublishState(s State) error

	Pump() error

	// OnCommand registers the handler for inbound commands. Handling is
	// fire-and-forget; handler errors do not exist by construction.
	OnCommand(fn func(name string, payload map[string]any))

	Close() error
}

// StateTopic returns the Losant state topic for a device.
func StateTopic(deviceID string) string {
	return fmt.Sprintf("losant/%s/state", deviceID)
}

// CommandTopic returns the Losant command topic for a device.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("losant/%s/command", deviceID)
}

// statePayload is the Losant state envelope.
type statePayload struct {
	Data stateData `json:"data"`
	Time int64     `json:"time"`
}

type stateData struct {
	VibrationDetected  bool    `json:"vibrationDetected"`
	VibrationMagnitude float64 `json:"vibrationMagnitude"`
}

// FormatStatePayload creates the JSON payload for a state publish. Time is
// epoch milliseconds, per the Losant convention.
func FormatStatePayload(s State, at time.Time) ([]byte, error) {
	return json.Marshal(statePayload{
		Data: stateData{
			VibrationDetected:  s.VibrationDetected,
			VibrationMagnitude: s.VibrationMagnitude,
		},
		Time: at.UnixMilli(),
	})
}

// Command is an inbound Losant command message.
type Command struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// ParseCommand decodes a command topic payload.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	if cmd.Name == "" {
		return Command{}, fmt.Errorf("parse command: missing name")
	}
	return cmd, nil
}
