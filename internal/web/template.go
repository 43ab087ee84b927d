package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/vibration-sense/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Vibration Sense</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: red; font-weight: bold; }
.idle { color: green; }
.connected { color: green; }
.disconnected { color: red; }
.connecting { color: orange; }
</style>
</head>
<body>
<h1>Vibration Sense</h1>

<h2>State</h2>
<table>
<tr><th>Vibration</th><td class="{{if eq (printf "%s" .Vibration) "ACTIVE"}}active{{else}}idle{{end}}">{{.Vibration}}</td></tr>
<tr><th>Magnitude</th><td>{{printf "%g" .Magnitude}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}warming up{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Sensor (BLE)</th><td class="{{if eq (printf "%s" .Sensor.State) "CONNECTED"}}connected{{else if eq (printf "%s" .Sensor.State) "CONNECTING"}}connecting{{else}}disconnected{{end}}">{{.Sensor.State}}{{if .Sensor.Attempts}} ({{.Sensor.Attempts}} failed attempts){{end}}</td></tr>
<tr><th>Device</th><td>{{.Config.DeviceName}}</td></tr>
<tr><th>Cloud (Losant)</th><td class="{{if eq (printf "%s" .Cloud.State) "CONNECTED"}}connected{{else if eq (printf "%s" .Cloud.State) "CONNECTING"}}connecting{{else}}disconnected{{end}}">{{.Cloud.State}}{{if .Cloud.Attempts}} ({{.Cloud.Attempts}} failed attempts){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Vibration started</th><td>{{.Events.Started}}</td></tr>
<tr><th>Vibration stopped</th><td>{{.Events.Stopped}}</td></tr>
<tr><th>Skipped publishes</th><td>{{.Counters.SkippedPublishes}}</td></tr>
<tr><th>Decode errors</th><td>{{.Counters.DecodeErrors}}</td></tr>
<tr><th>Commands</th><td>{{.Counters.Commands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Window</th><td>{{.Config.WindowSize}} samples</td></tr>
<tr><th>Thresholds</th><td>{{printf "%g" .Config.HighThreshold}} / {{printf "%g" .Config.LowThreshold}}</td></tr>
<tr><th>Quiet ticks</th><td>{{.Config.QuietTicks}}</td></tr>
<tr><th>Reconnect delay</th><td>{{.Config.ReconnectDelayMs}}ms</td></tr>
<tr><th>Keepalive</th><td>{{.Config.KeepaliveMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
