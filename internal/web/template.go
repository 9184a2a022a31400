package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/traffic-signal/internal/logic"
	"github.com/sweeney/traffic-signal/internal/status"
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
	"timer": func(remaining int) string {
		if remaining <= 0 {
			return ""
		}
		return fmt.Sprintf("%d s", remaining)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Traffic Signal</title>
<style>
body { font-family: monospace; max-width: 760px; margin: 2em auto; padding: 0 1em; background: #191919; color: #ddd; }
h1 { font-size: 1.4em; }
.panel { display: flex; gap: 2em; align-items: flex-start; }
.head img { width: 300px; height: 720px; background: #141414; }
.controls { flex: 1; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #333; }
th { width: 40%; }
button, select { font: inherit; width: 100%; margin: 4px 0; padding: 10px; border: 0; border-radius: 10px; color: #fff; cursor: pointer; }
#btn-start { background: #2e7d32; }
#btn-stop { background: #c62828; }
#btn-emergency { background: #ef6c00; }
select { background: #333; }
#timer { font-size: 42px; font-weight: bold; min-height: 1.2em; text-align: center; }
#banner { font-weight: bold; }
.mode-EMERGENCY { color: #ff6d00; }
.mode-NORMAL { color: #66bb6a; }
.mode-STOPPED { color: #888; }
.connected { color: #66bb6a; }
.disconnected { color: #ef5350; }
</style>
</head>
<body>
<h1>Traffic Signal</h1>

<div class="panel">
<div class="head"><img id="signal" src="/signal.png" alt="signal head"></div>

<div class="controls">
<div id="timer">{{timer .State.Remaining}}</div>
<p id="banner" class="mode-{{.State.Mode}}">{{.Banner}}</p>

<button id="btn-start" data-path="/api/start">START</button>
<button id="btn-stop" data-path="/api/stop">STOP</button>
<button id="btn-emergency" data-path="/api/emergency">EMERGENCY</button>
<select id="density">
{{range .Densities}}<option value="{{.}}"{{if eq . $.State.Density}} selected{{end}}>{{.}}</option>
{{end}}</select>

<h2>State</h2>
<table>
<tr><th>Mode</th><td id="mode">{{.State.Mode}}</td></tr>
<tr><th>Active</th><td id="active">{{.State.Active}}</td></tr>
<tr><th>Next index</th><td id="index">{{.State.Index}}</td></tr>
<tr><th>Density</th><td id="density-value">{{.State.Density}}</td></tr>
<tr><th>Session</th><td id="session">{{if .State.SessionID}}{{.State.SessionID}}{{else}}-{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Red</th><td id="count-red">{{.Counts.Red}}</td></tr>
<tr><th>Yellow</th><td id="count-yellow">{{.Counts.Yellow}}</td></tr>
<tr><th>Green</th><td id="count-green">{{.Counts.Green}}</td></tr>
<tr><th>Cycles</th><td id="count-cycles">{{.Counts.Cycles}}</td></tr>
<tr><th>Emergencies</th><td id="count-emergencies">{{.Counts.Emergencies}}</td></tr>
<tr><th>Stops</th><td id="count-stops">{{.Counts.Stops}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{if .Config.GPIOChip}}{{.Config.GPIOChip}}{{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</div>
</div>

<script>
(function() {
  var slots = ["RED", "YELLOW", "GREEN"];
  var img = document.getElementById("signal");

  function text(id, v) { document.getElementById(id).textContent = v; }

  function apply(msg) {
    var s = msg.status;
    if (!s) { return; }
    text("timer", s.remaining > 0 ? s.remaining + " s" : "");
    var banner = document.getElementById("banner");
    banner.textContent = s.banner;
    banner.className = "mode-" + s.mode;
    text("mode", s.mode);
    text("active", s.active);
    text("index", slots[s.index] || "NONE");
    text("density-value", s.density);
    text("session", s.session_id || "-");
    document.getElementById("density").value = s.density;
    var c = s.event_counts;
    text("count-red", c.red);
    text("count-yellow", c.yellow);
    text("count-green", c.green);
    text("count-cycles", c.cycles);
    text("count-emergencies", c.emergencies);
    text("count-stops", c.stops);
    img.src = "/signal.png?t=" + Date.now();
  }

  function post(path) {
    fetch(path, { method: "POST" })
      .then(function(r) { return r.json(); })
      .then(apply)
      .catch(function() {});
  }

  ["btn-start", "btn-stop", "btn-emergency"].forEach(function(id) {
    var b = document.getElementById(id);
    b.addEventListener("click", function() { post(b.dataset.path); });
  });
  document.getElementById("density").addEventListener("change", function(e) {
    post("/api/density/" + e.target.value);
  });

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onmessage = function(e) {
      try { apply(JSON.parse(e.data)); } catch (err) {}
    };
    ws.onclose = function() { setTimeout(connect, 2000); };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Densities []logic.Density
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Densities: logic.Densities,
	}
	return indexTmpl.Execute(w, data)
}
