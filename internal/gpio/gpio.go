// Package gpio drives the signal lamps and reads the control panel buttons.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import "github.com/sweeney/traffic-signal/internal/logic"

// Lamps drives the three lamp outputs of the signal head.
type Lamps interface {
	// Set switches each lamp to the given state, indexed by logic.Slot.
	Set(lights [logic.NumSlots]bool) error

	// Close darkens the lamps and releases GPIO resources.
	Close() error
}

// Buttons reads the control panel push buttons.
type Buttons interface {
	// Read returns the logical button states.
	// The raw GPIO values are inverted: buttons pull the line low when pressed.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Sample represents a single button reading (already in logical form).
type Sample struct {
	Start     bool // true = pressed
	Stop      bool
	Emergency bool
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinRed       = 17
	DefaultPinYellow    = 27
	DefaultPinGreen     = 22
	DefaultPinStart     = 5
	DefaultPinStop      = 6
	DefaultPinEmergency = 13
)

// LampPins holds the BCM output pins, indexed by logic.Slot.
type LampPins [logic.NumSlots]int

// ButtonPins holds the BCM input pins for the control panel.
type ButtonPins struct {
	Start     int
	Stop      int
	Emergency int
}
