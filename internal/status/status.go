// Package status provides a thread-safe status tracker for the traffic-signal daemon.
// It is written by runLoop and read by HTTP handlers, the websocket feed and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/traffic-signal/internal/logic"
)

// NetworkInfo is the host network state published by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	GPIOChip    string // empty when GPIO is disabled
	Durations   logic.Durations
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.SignalState
	Banner        logic.Banner
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			State:     logic.SignalState{Index: logic.SlotGreen},
			Banner:    logic.BannerNormal,
		},
	}
}

// Update sets the signal state and event counts, and moves the banner on
// from the previous state. Called from runLoop on every repaint and tick.
func (t *Tracker) Update(state logic.SignalState, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Banner = logic.NextBanner(t.snap.Banner, t.snap.State, state)
	t.snap.State = state
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	s.Now = time.Now()
	return s
}
