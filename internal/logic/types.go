// Package logic contains the pure signal model and event detection.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// Slot identifies one of the three lamp positions in the signal head.
type Slot int

const (
	NoSlot     Slot = -1
	SlotRed    Slot = 0
	SlotYellow Slot = 1
	SlotGreen  Slot = 2
)

// NumSlots is the number of lamps in the signal head.
const NumSlots = 3

// Next returns the slot that follows s in the normal cycle: 2 → 1 → 0 → 2.
func (s Slot) Next() Slot {
	if s <= SlotRed {
		return SlotGreen
	}
	return s - 1
}

// Valid reports whether s addresses a lamp.
func (s Slot) Valid() bool {
	return s >= SlotRed && s <= SlotGreen
}

func (s Slot) String() string {
	switch s {
	case SlotRed:
		return "RED"
	case SlotYellow:
		return "YELLOW"
	case SlotGreen:
		return "GREEN"
	}
	return "NONE"
}

// Density is the traffic density setting. It only scales the green duration.
type Density string

const (
	DensityLow    Density = "LOW"
	DensityMedium Density = "MEDIUM"
	DensityHigh   Density = "HIGH"
)

// Densities lists the levels in ascending order.
var Densities = []Density{DensityLow, DensityMedium, DensityHigh}

// ParseDensity parses a density name, ignoring case.
func ParseDensity(s string) (Density, error) {
	d := Density(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DensityLow, DensityMedium, DensityHigh:
		return d, nil
	}
	return "", fmt.Errorf("unknown density %q", s)
}

// Mode is the display mode derived from the control flags.
type Mode string

const (
	ModeStopped   Mode = "STOPPED"
	ModeNormal    Mode = "NORMAL"
	ModeEmergency Mode = "EMERGENCY"
)

// SignalState is a point-in-time view of the signal and its control flags.
type SignalState struct {
	Lights    [NumSlots]bool
	Index     Slot // next slot the cycle activates (or is counting down)
	Remaining int  // seconds left on the countdown; 0 means blank
	Density   Density
	Emergency bool
	Paused    bool
	Running   bool // loop has been started at least once
	SessionID string
}

// Active returns the lit slot, or NoSlot if all lamps are dark.
func (s SignalState) Active() Slot {
	for i, on := range s.Lights {
		if on {
			return Slot(i)
		}
	}
	return NoSlot
}

// Mode derives the display mode. Emergency wins over normal only while
// the loop is running; a stopped signal is always STOPPED.
func (s SignalState) Mode() Mode {
	if !s.Running || s.Paused {
		return ModeStopped
	}
	if s.Emergency {
		return ModeEmergency
	}
	return ModeNormal
}

// Banner is the operator status line shown on the control panel.
type Banner string

const (
	BannerNormal         Banner = "NORMAL MODE"
	BannerEmergency      Banner = "EMERGENCY MODE ACTIVE"
	BannerEmergencyEnded Banner = "EMERGENCY MODE ENDED"
)

// NextBanner returns the banner after the signal moves from prev to cur.
// An emergency toggle sets it, even while stopped; a stop resets it to
// normal. Otherwise b is kept.
func NextBanner(b Banner, prev, cur SignalState) Banner {
	if cur.Mode() == ModeStopped && prev.Mode() != ModeStopped {
		b = BannerNormal
	}
	if cur.Emergency != prev.Emergency {
		if cur.Emergency {
			b = BannerEmergency
		} else {
			b = BannerEmergencyEnded
		}
	}
	if b == "" {
		b = BannerNormal
	}
	return b
}

// Action is a control surface request.
type Action string

const (
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionEmergency Action = "emergency"
	ActionDensity   Action = "density"
)

// Command is a control request from any surface (web, MQTT, buttons).
type Command struct {
	Action  Action
	Density Density // only for ActionDensity
}

// EventType represents a published signal event.
type EventType string

const (
	EventStarted        EventType = "STARTED"
	EventStopped        EventType = "STOPPED"
	EventEmergencyOn    EventType = "EMERGENCY_ON"
	EventEmergencyOff   EventType = "EMERGENCY_OFF"
	EventDensityChanged EventType = "DENSITY_CHANGED"
	EventSignalRed      EventType = "SIGNAL_RED"
	EventSignalYellow   EventType = "SIGNAL_YELLOW"
	EventSignalGreen    EventType = "SIGNAL_GREEN"
)

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Active    Slot
	Density   Density
	Mode      Mode
}

// Input represents a single sample of signal state.
type Input struct {
	State SignalState
	Time  time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Red         int
	Yellow      int
	Green       int
	Cycles      int // completed RED → GREEN wraps
	Emergencies int
	Stops       int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
