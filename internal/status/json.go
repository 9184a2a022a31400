package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/traffic-signal/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Mode          string       `json:"mode"`
	Banner        string       `json:"banner"`
	Active        string       `json:"active"`
	Index         int          `json:"index"`
	Remaining     int          `json:"remaining"`
	Density       string       `json:"density"`
	Emergency     bool         `json:"emergency"`
	Lights        LightsJSON   `json:"lights"`
	SessionID     string       `json:"session_id,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LightsJSON reports each lamp.
type LightsJSON struct {
	Red    bool `json:"red"`
	Yellow bool `json:"yellow"`
	Green  bool `json:"green"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Red         int `json:"red"`
	Yellow      int `json:"yellow"`
	Green       int `json:"green"`
	Cycles      int `json:"cycles"`
	Emergencies int `json:"emergencies"`
	Stops       int `json:"stops"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// DurationsJSON is the configured slot durations in seconds.
type DurationsJSON struct {
	Red    int            `json:"red"`
	Yellow int            `json:"yellow"`
	Green  map[string]int `json:"green"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64         `json:"poll_ms"`
	DebounceMs  int64         `json:"debounce_ms"`
	HeartbeatMs int64         `json:"heartbeat_ms"`
	Broker      string        `json:"broker"`
	HTTPAddr    string        `json:"http_addr"`
	GPIOChip    string        `json:"gpio_chip,omitempty"`
	Durations   DurationsJSON `json:"durations"`
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.State
	density := st.Density
	if density == "" {
		density = logic.DensityMedium
	}
	banner := snap.Banner
	if banner == "" {
		banner = logic.BannerNormal
	}

	green := make(map[string]int, len(snap.Config.Durations.Green))
	for d, secs := range snap.Config.Durations.Green {
		green[string(d)] = secs
	}

	return StatusInner{
		Mode:      string(st.Mode()),
		Banner:    string(banner),
		Active:    st.Active().String(),
		Index:     int(st.Index),
		Remaining: st.Remaining,
		Density:   string(density),
		Emergency: st.Emergency,
		Lights: LightsJSON{
			Red:    st.Lights[logic.SlotRed],
			Yellow: st.Lights[logic.SlotYellow],
			Green:  st.Lights[logic.SlotGreen],
		},
		SessionID:     st.SessionID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Red:         snap.Counts.Red,
			Yellow:      snap.Counts.Yellow,
			Green:       snap.Counts.Green,
			Cycles:      snap.Counts.Cycles,
			Emergencies: snap.Counts.Emergencies,
			Stops:       snap.Counts.Stops,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			GPIOChip:    snap.Config.GPIOChip,
			Durations: DurationsJSON{
				Red:    snap.Config.Durations.Red,
				Yellow: snap.Config.Durations.Yellow,
				Green:  green,
			},
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatCompactJSON is FormatJSON without indentation, for the websocket feed.
func FormatCompactJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
