// Command vibration-sense bridges a BLE vibration sensor to the Losant cloud:
// it streams magnitude notifications from the device, derives a debounced
// vibration on/off signal, and publishes state transitions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/vibration-sense/internal/ble"
	"github.com/sweeney/vibration-sense/internal/bridge"
	"github.com/sweeney/vibration-sense/internal/cloud"
	"github.com/sweeney/vibration-sense/internal/logic"
	"github.com/sweeney/vibration-sense/internal/status"
	"github.com/sweeney/vibration-sense/internal/web"
)

// Losant credential env var names, loaded from the process environment or a
// .env file.
const (
	envDeviceID     = "LOSANT_DEVICE_ID"
	envAccessKey    = "LOSANT_ACCESS_KEY"
	envAccessSecret = "LOSANT_ACCESS_SECRET"
)

type options struct {
	deviceName     string
	scanTimeout    time.Duration
	reconnectDelay time.Duration
	keepalive      time.Duration
	broker         string
	httpAddr       string
	envFile        string
	high           float64
	low            float64
	quietTicks     int
}

func main() {
	var opts options
	flag.StringVar(&opts.deviceName, "device-name", ble.DefaultDeviceName, "Advertised BLE name of the sensor")
	flag.DurationVar(&opts.scanTimeout, "scan-timeout", bridge.DefaultScanTimeout, "BLE discovery window")
	flag.DurationVar(&opts.reconnectDelay, "reconnect-delay", bridge.DefaultReconnectDelay, "Sensor reconnect cadence")
	flag.DurationVar(&opts.keepalive, "keepalive", bridge.DefaultKeepalive, "Cloud keep-alive cadence")
	flag.StringVar(&opts.broker, "broker", cloud.DefaultBroker, "Losant MQTT broker address")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.envFile, "env-file", "", "Load Losant credentials from this file (default: .env if present)")
	flag.Float64Var(&opts.high, "high", logic.HighThreshold, "Stdev threshold that starts vibration")
	flag.Float64Var(&opts.low, "low", logic.LowThreshold, "Stdev threshold below which a sample counts as quiet")
	flag.IntVar(&opts.quietTicks, "quiet-ticks", logic.QuietTicks, "Consecutive quiet samples that end vibration")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	creds, err := loadCredentials(opts.envFile)
	if err != nil {
		return err
	}

	sensor := ble.NewRealLink(opts.deviceName)
	cloudLink := cloud.NewLosantClient(opts.broker, creds.deviceID, creds.accessKey, creds.accessSecret)
	detector := logic.NewDetector(opts.high, opts.low, opts.quietTicks)

	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceName:       opts.deviceName,
		Broker:           opts.broker,
		ScanTimeoutMs:    opts.scanTimeout.Milliseconds(),
		ReconnectDelayMs: opts.reconnectDelay.Milliseconds(),
		KeepaliveMs:      opts.keepalive.Milliseconds(),
		HTTPAddr:         opts.httpAddr,
		HighThreshold:    opts.high,
		LowThreshold:     opts.low,
		QuietTicks:       opts.quietTicks,
		WindowSize:       logic.WindowSize,
	})

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	b := bridge.New(sensor, cloudLink, detector, tracker, bridge.Config{
		ReconnectDelay: opts.reconnectDelay,
		ScanTimeout:    opts.scanTimeout,
		Keepalive:      opts.keepalive,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received %v, shutting down", s)
		cancel()
	}()

	log.Printf("started: device=%q broker=%s reconnect=%v keepalive=%v high=%g low=%g quiet-ticks=%d",
		opts.deviceName, opts.broker, opts.reconnectDelay, opts.keepalive, opts.high, opts.low, opts.quietTicks)

	return b.Run(ctx)
}

// credentials holds the Losant device identity.
type credentials struct {
	deviceID     string
	accessKey    string
	accessSecret string
}

// loadCredentials reads the Losant credentials from the environment,
// optionally overlaying a .env file first. With no explicit file, a ./.env is
// loaded if present.
func loadCredentials(envFile string) (credentials, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return credentials{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Overload(); err != nil && !os.IsNotExist(err) {
		return credentials{}, fmt.Errorf("load .env: %w", err)
	}

	c := credentials{
		deviceID:     os.Getenv(envDeviceID),
		accessKey:    os.Getenv(envAccessKey),
		accessSecret: os.Getenv(envAccessSecret),
	}

	var missing []string
	if c.deviceID == "" {
		missing = append(missing, envDeviceID)
	}
	if c.accessKey == "" {
		missing = append(missing, envAccessKey)
	}
	if c.accessSecret == "" {
		missing = append(missing, envAccessSecret)
	}
	if len(missing) > 0 {
		return credentials{}, fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return c, nil
}
