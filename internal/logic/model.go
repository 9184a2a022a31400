package logic

import "sync"

// Signal is one lamp of the signal head.
type Signal struct {
	Slot     Slot
	Color    string // hex RGB
	Duration int    // base duration in seconds
	On       bool
}

// Durations holds the per-slot timings in seconds.
// Green is looked up by density; red and yellow are fixed.
type Durations struct {
	Red    int
	Yellow int
	Green  map[Density]int
}

// DefaultDurations returns the stock timings: red 30s, yellow 10s,
// green 15/30/50s for LOW/MEDIUM/HIGH.
func DefaultDurations() Durations {
	return Durations{
		Red:    30,
		Yellow: 10,
		Green: map[Density]int{
			DensityLow:    15,
			DensityMedium: 30,
			DensityHigh:   50,
		},
	}
}

// Model holds the three lamps and the operator settings.
// Safe for concurrent use.
type Model struct {
	mu        sync.RWMutex
	signals   [NumSlots]Signal
	green     map[Density]int
	density   Density
	emergency bool
}

// NewModel creates a model with all lamps off and the given initial density.
func NewModel(d Durations, density Density) *Model {
	green := make(map[Density]int, len(d.Green))
	for k, v := range d.Green {
		green[k] = v
	}
	if density == "" {
		density = DensityMedium
	}
	return &Model{
		signals: [NumSlots]Signal{
			{Slot: SlotRed, Color: "#ff0000", Duration: d.Red},
			{Slot: SlotYellow, Color: "#ffff00", Duration: d.Yellow},
			{Slot: SlotGreen, Color: "#00ff00", Duration: green[DensityMedium]},
		},
		green:   green,
		density: density,
	}
}

// SetLightOn switches every lamp off and then lights s.
// NoSlot (or any invalid slot) leaves all lamps dark.
func (m *Model) SetLightOn(s Slot) {
	m.mu.Lock()
	for i := range m.signals {
		m.signals[i].On = false
	}
	if s.Valid() {
		m.signals[s].On = true
	}
	m.mu.Unlock()
}

// IsLightOn reports whether slot s is lit.
func (m *Model) IsLightOn(s Slot) bool {
	if !s.Valid() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signals[s].On
}

// Lights returns the on/off state of all three lamps.
func (m *Model) Lights() [NumSlots]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [NumSlots]bool
	for i, sig := range m.signals {
		out[i] = sig.On
	}
	return out
}

// Signals returns a copy of the lamps.
func (m *Model) Signals() [NumSlots]Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signals
}

// Delay returns the duration in seconds for slot s. The green slot reads
// the current density at call time.
func (m *Model) Delay(s Slot) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s == SlotGreen {
		if d, ok := m.green[m.density]; ok {
			return d
		}
		return m.green[DensityMedium]
	}
	if !s.Valid() {
		return 0
	}
	return m.signals[s].Duration
}

// SetDensity sets the traffic density.
func (m *Model) SetDensity(d Density) {
	m.mu.Lock()
	m.density = d
	m.mu.Unlock()
}

// Density returns the traffic density.
func (m *Model) Density() Density {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.density
}

// ToggleEmergency flips the emergency flag and returns the new value.
func (m *Model) ToggleEmergency() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emergency = !m.emergency
	return m.emergency
}

// Emergency reports whether emergency mode is requested.
func (m *Model) Emergency() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emergency
}
