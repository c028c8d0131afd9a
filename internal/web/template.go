package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/gps-poller/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"accuracy": func(m float64) string {
		if m <= 0 {
			return "best"
		}
		return fmt.Sprintf("%.0f m", m)
	},
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>GPS Poller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>GPS Poller</h1>

<table>
<tr><th>Sensor power</th><td class="{{if .Poller.PoweredUp}}on{{else}}off{{end}}">{{onOff .Poller.PoweredUp}}</td></tr>
<tr><th>Updating</th><td class="{{if .Poller.Updating}}on{{else}}off{{end}}">{{onOff .Poller.Updating}}</td></tr>
<tr><th>Interval poll</th><td>{{if .Poller.WantingInterval}}in flight{{else}}idle{{end}}</td></tr>
<tr><th>Immediate poll</th><td>{{if .Poller.WantingImmediate}}in flight{{else}}idle{{end}}</td></tr>
<tr><th>Significant changes</th><td>{{onOff .Poller.MonitoringSignificant}}</td></tr>
<tr><th>Authorization</th><td>{{.Authorization}}</td></tr>
<tr><th>Desired accuracy</th><td>{{accuracy .Poller.DesiredAccuracy}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>

{{if .Poller.LastFix}}
<table>
<tr><th>Last fix</th><td>{{rfc3339 .Poller.LastFix.Timestamp}}</td></tr>
<tr><th>Latitude</th><td>{{printf "%.6f" .Poller.LastFix.Latitude}}</td></tr>
<tr><th>Longitude</th><td>{{printf "%.6f" .Poller.LastFix.Longitude}}</td></tr>
<tr><th>Accuracy</th><td>{{accuracy .Poller.LastFix.HorizontalAccuracy}}</td></tr>
</table>
{{end}}

<table>
<tr><th>Interval updates</th><td>{{.Poller.Counts.IntervalUpdates}}</td></tr>
<tr><th>Immediate updates</th><td>{{.Poller.Counts.ImmediateUpdates}}</td></tr>
<tr><th>Failures</th><td>{{.Poller.Counts.Failures}}</td></tr>
<tr><th>Silent misses</th><td>{{.Poller.Counts.SilentMisses}}</td></tr>
</table>

<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Serial port</th><td>{{.Config.Port}}</td></tr>
{{if .Network}}
<tr><th>Network</th><td>{{.Network.Type}} {{.Network.IP}} ({{.Network.Status}})</td></tr>
{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render template: %v", err)
	}
}
