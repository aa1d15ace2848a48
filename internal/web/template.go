package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/dht22-sensor/internal/status"
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
	"ago": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return now.Sub(t).Truncate(time.Second).String() + " ago"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>DHT22 {{.Config.SensorID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-size: 1.3em; font-weight: bold; }
.ok { color: green; }
.err { color: red; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DHT22 {{.Config.SensorID}}</h1>

<h2>Reading</h2>
<table>
{{if .Baselined}}<tr><th>Temperature</th><td class="value">{{printf "%.1f" .Celsius}} °C</td></tr>
<tr><th>Humidity</th><td class="value">{{printf "%.1f" .Percent}} %RH</td></tr>
{{else}}<tr><th>Reading</th><td class="unknown">no good reading yet</td></tr>
{{end}}<tr><th>Last read</th><td>{{ago .LastRead .Now}}</td></tr>
<tr><th>Last result</th><td class="{{if eq .LastResult.String "OK"}}ok{{else if eq .LastResult.String "NONE"}}unknown{{else}}err{{end}}">{{.LastResult}}</td></tr>
<tr><th>Sensor state</th><td>{{.State}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Read Counts</h2>
<table>
<tr><th>OK</th><td>{{.Counts.Ok}}</td></tr>
<tr><th>Checksum mismatch</th><td>{{.Counts.ChecksumMismatch}}</td></tr>
<tr><th>Wake-up error</th><td>{{.Counts.WakeUpError}}</td></tr>
<tr><th>Data error</th><td>{{.Counts.DataError}}</td></tr>
<tr><th>Timed out</th><td>{{.Counts.TimedOut}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Line</th><td>{{.Config.Chip}} pin {{.Config.Pin}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Read timeout</th><td>{{.Config.ReadTimeoutMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template calls cannot take arguments, so derived values are fields.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Celsius float64
		Percent float64
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Celsius:  float64(snap.Reading.Temperature) / 10,
		Percent:  float64(snap.Reading.Humidity) / 10,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("web: render index")
	}
}
