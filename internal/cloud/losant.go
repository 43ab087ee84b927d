package cloud

import (
	"errors"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// LosantClient publishes device state to the Losant platform over MQTT.
// Reconnection is owned by the caller's supervisor, so paho's auto-reconnect
// is disabled.
type LosantClient struct {
	client    paho.Client
	deviceID  string
	onCommand func(name string, payload map[string]any)
	now       func() time.Time
}

// NewLosantClient creates a client for the given device credentials. The
// client id must be the Losant device id; the access key/secret pair
// authenticates the connection.
func NewLosantClient(broker, deviceID, accessKey, accessSecret string) *LosantClient {
	l := &LosantClient{
		deviceID: deviceID,
		now:      time.Now,
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(deviceID).
		SetUsername(accessKey).
		SetPassword(accessSecret).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second)

	l.client = paho.NewClient(opts)
	return l
}

// OnCommand registers the inbound command handler. Must be called before
// Connect; the command topic is only subscribed when a handler is set.
func (l *LosantClient) OnCommand(fn func(name string, payload map[string]any)) {
	l.onCommand = fn
}

// Connect establishes the MQTT session and subscribes to the command topic.
func (l *LosantClient) Connect() error {
	token := l.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return errors.New("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	if l.onCommand != nil {
		tok := l.client.Subscribe(CommandTopic(l.deviceID), 0, l.handleMessage)
		if !tok.WaitTimeout(5 * time.Second) {
			l.client.Disconnect(250)
			return errors.New("command subscribe timeout")
		}
		if err := tok.Error(); err != nil {
			l.client.Disconnect(250)
			return fmt.Errorf("subscribe commands: %w", err)
		}
	}
	return nil
}

// IsConnected reports whether the MQTT session is up.
func (l *LosantClient) IsConnected() bool {
	return l.client.IsConnectionOpen()
}

// PublishState sends a state transition to Losant.
func (l *LosantClient) PublishState(s State) error {
	payload, err := FormatStatePayload(s, l.now())
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained: state is re-derived on the next
	// transition, so redelivery of a stale edge is worse than a drop.
	token := l.client.Publish(StateTopic(l.deviceID), 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	return nil
}

// Pump services the transport. paho runs its own keep-alive goroutines, so
// this is a liveness probe: an error tells the keep-alive loop the session
// dropped.
func (l *LosantClient) Pump() error {
	if !l.client.IsConnectionOpen() {
		return errors.New("mqtt session closed")
	}
	return nil
}

// Close tears down the MQTT session.
func (l *LosantClient) Close() error {
	l.client.Disconnect(1000) // 1 second to flush in-flight messages
	return nil
}

func (l *LosantClient) handleMessage(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		log.Printf("cloud: dropping malformed command: %v", err)
		return
	}
	l.onCommand(cmd.Name, cmd.Payload)
}
