package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/light-relay/internal/status"
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
	"stateClass": func(s string) string {
		switch s {
		case "ON":
			return "on"
		case "OFF":
			return "off"
		default:
			return "unknown"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Light Relay</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Light Relay</h1>

<h2>Light</h2>
<table>
<tr><th>State</th><td id="light-state" class="{{stateClass (printf "%s" .Actuator)}}">{{printf "%s" .Actuator}}</td></tr>
{{if .Schedule}}<tr><th>ON at</th><td>{{.Schedule.On}}</td></tr>
<tr><th>OFF at</th><td>{{.Schedule.Off}}</td></tr>{{else}}<tr><th>Schedule</th><td class="unknown">none</td></tr>{{end}}
{{if .Next.NextState}}<tr><th>Next</th><td class="{{stateClass .Next.NextState}}">{{.Next.NextState}} at {{.Next.NextAt}}</td></tr>{{end}}
<tr><th>Last tick</th><td>{{if .LastTick}}{{.LastTick}}{{else}}-{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
<tr><th>Actuator</th><td>{{.Config.SinkMode}}{{if .Config.SinkTarget}} ({{.Config.SinkTarget}}){{end}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>ON commands</th><td>{{.Counts.On}}</td></tr>
<tr><th>OFF commands</th><td>{{.Counts.Off}}</td></tr>
<tr><th>Failed commands</th><td>{{.Counts.Failures}}</td></tr>
<tr><th>Schedule updates</th><td>{{.Updates}}</td></tr>
<tr><th>Rejected payloads</th><td>{{.Rejected}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Duplicate commands</th><td>{{if .Config.Refire}}re-sent every matching tick{{else}}suppressed{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">status JSON</a> | <a href="/schedule.json">schedule JSON</a> | <a href="/healthz">health</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Next   ScheduleResponse
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Next:     scheduleResponse(snap),
	}
	return indexTmpl.Execute(w, data)
}
