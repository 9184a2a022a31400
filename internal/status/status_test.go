package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/traffic-signal/internal/logic"
)

func runningState(active logic.Slot, remaining int) logic.SignalState {
	st := logic.SignalState{
		Index:     active,
		Remaining: remaining,
		Density:   logic.DensityMedium,
		Running:   true,
		SessionID: "3f2b8c1e-0000-4000-8000-000000000001",
	}
	if active.Valid() {
		st.Lights[active] = true
	}
	return st
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 50, DebounceMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 50 {
		t.Errorf("Config.PollMs: got %d, want 50", snap.Config.PollMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.State.Mode() != logic.ModeStopped {
		t.Errorf("expected STOPPED initially, got %s", snap.State.Mode())
	}
	if snap.State.Index != logic.SlotGreen {
		t.Errorf("expected initial index GREEN, got %s", snap.State.Index)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(runningState(logic.SlotYellow, 7), logic.EventCounts{Green: 3, Cycles: 2})

	snap := tr.Snapshot()
	if snap.State.Active() != logic.SlotYellow {
		t.Errorf("Active: got %s, want YELLOW", snap.State.Active())
	}
	if snap.State.Remaining != 7 {
		t.Errorf("Remaining: got %d, want 7", snap.State.Remaining)
	}
	if snap.Counts.Green != 3 {
		t.Errorf("Counts.Green: got %d, want 3", snap.Counts.Green)
	}
	if snap.Counts.Cycles != 2 {
		t.Errorf("Counts.Cycles: got %d, want 2", snap.Counts.Cycles)
	}
}

func TestUpdateTracksBanner(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	if got := tr.Snapshot().Banner; got != logic.BannerNormal {
		t.Fatalf("initial banner: got %q, want %q", got, logic.BannerNormal)
	}

	emergency := runningState(logic.SlotGreen, 0)
	emergency.Emergency = true
	stopped := runningState(logic.NoSlot, 0)
	stopped.Paused = true

	steps := []struct {
		state logic.SignalState
		want  logic.Banner
	}{
		{runningState(logic.SlotGreen, 30), logic.BannerNormal},
		{emergency, logic.BannerEmergency},
		{runningState(logic.SlotGreen, 30), logic.BannerEmergencyEnded},
		{runningState(logic.SlotYellow, 10), logic.BannerEmergencyEnded},
		{stopped, logic.BannerNormal},
	}
	for i, s := range steps {
		tr.Update(s.state, logic.EventCounts{})
		if got := tr.Snapshot().Banner; got != s.want {
			t.Errorf("step %d: banner %q, want %q", i, got, s.want)
		}
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Banner != string(logic.BannerNormal) {
		t.Errorf("JSON banner: got %q, want %q", parsed.Status.Banner, logic.BannerNormal)
	}
}

func TestFormatJSONBannerDefault(t *testing.T) {
	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(Snapshot{}), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Banner != string(logic.BannerNormal) {
		t.Errorf("banner: got %q, want %q", parsed.Status.Banner, logic.BannerNormal)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(runningState(logic.SlotGreen, 30), logic.EventCounts{Green: 1})

	snap1 := tr.Snapshot()

	tr.Update(runningState(logic.SlotYellow, 10), logic.EventCounts{Green: 1, Yellow: 1})

	if snap1.State.Active() != logic.SlotGreen {
		t.Error("snapshot should be a copy; active slot was modified")
	}
	if snap1.Counts.Yellow != 0 {
		t.Error("snapshot should be a copy; counts were modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:         runningState(logic.SlotGreen, 12),
		Counts:        logic.EventCounts{Red: 2, Yellow: 2, Green: 3, Cycles: 2, Stops: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			PollMs:      50,
			DebounceMs:  100,
			HeartbeatMs: 900000,
			Broker:      "tcp://localhost:1883",
			HTTPAddr:    ":80",
			Durations:   logic.DefaultDurations(),
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Mode != "NORMAL" {
		t.Errorf("Mode: got %q, want NORMAL", s.Mode)
	}
	if s.Active != "GREEN" {
		t.Errorf("Active: got %q, want GREEN", s.Active)
	}
	if s.Index != 2 {
		t.Errorf("Index: got %d, want 2", s.Index)
	}
	if s.Remaining != 12 {
		t.Errorf("Remaining: got %d, want 12", s.Remaining)
	}
	if s.Density != "MEDIUM" {
		t.Errorf("Density: got %q, want MEDIUM", s.Density)
	}
	if !s.Lights.Green || s.Lights.Red || s.Lights.Yellow {
		t.Errorf("Lights: got %+v, want green only", s.Lights)
	}
	if s.SessionID == "" {
		t.Error("expected session_id")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Cycles != 2 || s.Counts.Stops != 1 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Config.Durations.Green["HIGH"] != 50 {
		t.Errorf("Config green HIGH: got %d, want 50", s.Config.Durations.Green["HIGH"])
	}
	// Event and Reason should be omitted
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
	if s.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", s.Reason)
	}
}

func TestFormatJSONStoppedState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Mode != "STOPPED" {
		t.Errorf("Mode: got %q, want STOPPED", parsed.Status.Mode)
	}
	if parsed.Status.Active != "NONE" {
		t.Errorf("Active: got %q, want NONE", parsed.Status.Active)
	}
	if parsed.Status.Density != "MEDIUM" {
		t.Errorf("Density: got %q, want MEDIUM default", parsed.Status.Density)
	}
}

func TestFormatJSONEmergency(t *testing.T) {
	st := runningState(logic.SlotGreen, 0)
	st.Emergency = true
	snap := Snapshot{State: st, StartTime: time.Now(), Now: time.Now()}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Mode != "EMERGENCY" {
		t.Errorf("Mode: got %q, want EMERGENCY", parsed.Status.Mode)
	}
	if !parsed.Status.Emergency {
		t.Error("expected emergency=true")
	}
}

func TestFormatCompactJSONHasNoNewlines(t *testing.T) {
	snap := Snapshot{State: runningState(logic.SlotRed, 5), StartTime: time.Now(), Now: time.Now()}

	data := FormatCompactJSON(snap)
	for _, b := range data {
		if b == '\n' {
			t.Fatal("compact JSON should be a single line")
		}
	}
	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Active != "RED" {
		t.Errorf("Active: got %q, want RED", parsed.Status.Active)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:         runningState(logic.SlotYellow, 4),
		Counts:        logic.EventCounts{Yellow: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 50, DebounceMs: 100, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Active != "YELLOW" {
		t.Errorf("Active: got %q, want YELLOW", parsed.Status.Active)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if _, exists := status["session_id"]; exists {
		t.Error("session_id should be omitted before the first start")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(runningState(logic.Slot(i%3), i%30), logic.EventCounts{Green: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatCompactJSON(snap)
		}
	}()

	wg.Wait()
}
