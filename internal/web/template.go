package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/boiler-climate/internal/status"
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
	"temp": func(v float64) string {
		return fmt.Sprintf("%.2f °C", v)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Boiler Climate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alert { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Boiler Climate</h1>

<h2>Climate</h2>
<table>
<tr><th>Outdoor</th><td id="outdoor">{{temp .Climate.Temperatures.Outdoor}} ({{.Settings.Sensors.Outdoor.Type}})</td></tr>
<tr><th>Indoor</th><td id="indoor">{{temp .Climate.Temperatures.Indoor}} ({{.Settings.Sensors.Indoor.Type}})</td></tr>
<tr><th>Target</th><td>{{temp .Settings.Heating.Target}}</td></tr>
<tr><th>Setpoint</th><td id="setpoint">{{.Climate.HeatingSetpoint}} °C</td></tr>
<tr><th>Heating</th><td class="{{if .Climate.HeatingEnabled}}on{{else}}off{{end}}">{{onOff .Climate.HeatingEnabled}}</td></tr>
<tr><th>Fault</th><td class="{{if .Climate.Fault}}alert{{else}}off{{end}}">{{onOff .Climate.Fault}}</td></tr>
<tr><th>Emergency</th><td id="emergency" class="{{if .Climate.Emergency}}alert{{else}}off{{end}}">{{onOff .Climate.Emergency}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Regulation</h2>
<table>
<tr><th>Path</th><td id="path">{{if .Regulation.Path}}{{.Regulation.Path}}{{else}}-{{end}}</td></tr>
<tr><th>Equitherm</th><td>{{onOff .Settings.Equitherm.Enable}} (N {{.Settings.Equitherm.N}}, K {{.Settings.Equitherm.K}}, T {{.Settings.Equitherm.T}})</td></tr>
<tr><th>PID</th><td>{{onOff .Settings.PID.Enable}} (P {{.Settings.PID.P}}, I {{.Settings.PID.I}}, D {{.Settings.PID.D}})</td></tr>
<tr><th>Turbo</th><td>{{onOff .Settings.Heating.Turbo}}</td></tr>
<tr><th>Auto-tune</th><td id="tuning">{{if .Climate.Tuning.Enabled}}{{.Climate.Tuning.Strategy}}{{if .Regulation.TunerRunning}}: {{.Regulation.TunerState}}{{end}}{{else}}OFF{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensor interval</th><td>{{.Config.SensorIntervalMs}}ms</td></tr>
<tr><th>Regulator interval</th><td>{{.Config.RegulatorIntervalMs}}ms</td></tr>
<tr><th>Settings</th><td>{{.Config.SettingsPath}}</td></tr>
<tr><th>GPIO</th><td>{{if .Config.GPIO}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
