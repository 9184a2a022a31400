//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/traffic-signal/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealLamps drives lamp relays on actual hardware using Linux GPIO character device.
type RealLamps struct {
	chip  *gpiocdev.Chip
	lines [logic.NumSlots]*gpiocdev.Line
}

// NewRealLamps requests the three lamp pins as outputs, initially dark.
func NewRealLamps(chipName string, pins LampPins) (*RealLamps, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l := &RealLamps{chip: chip}
	for i, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", logic.Slot(i), pin, err)
		}
		l.lines[i] = line
	}
	return l, nil
}

// Set drives each lamp output high when lit.
func (l *RealLamps) Set(lights [logic.NumSlots]bool) error {
	for i, on := range lights {
		v := 0
		if on {
			v = 1
		}
		if err := l.lines[i].SetValue(v); err != nil {
			return fmt.Errorf("set %s pin: %w", logic.Slot(i), err)
		}
	}
	return nil
}

// Close darkens every lamp and releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing so the relays stay off through shutdown/reboot.
func (l *RealLamps) Close() error {
	var errs []error

	for i, line := range l.lines {
		if line == nil {
			continue
		}
		name := logic.Slot(i)
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("darken %s pin: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButtons reads control panel buttons from actual hardware.
type RealButtons struct {
	chip      *gpiocdev.Chip
	start     *gpiocdev.Line
	stop      *gpiocdev.Line
	emergency *gpiocdev.Line
}

// NewRealButtons requests the button pins as inputs with pull-up.
// Each button shorts its pin to ground when pressed.
func NewRealButtons(chipName string, pins ButtonPins) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButtons{chip: chip}
	request := func(name string, pin int) (*gpiocdev.Line, error) {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", name, pin, err)
		}
		return line, nil
	}

	if b.start, err = request("start", pins.Start); err != nil {
		b.Close()
		return nil, err
	}
	if b.stop, err = request("stop", pins.Stop); err != nil {
		b.Close()
		return nil, err
	}
	if b.emergency, err = request("emergency", pins.Emergency); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Read returns the logical button states.
// Inverts raw GPIO: raw low (0) = pressed, raw high (1) = released.
func (b *RealButtons) Read() (Sample, error) {
	startRaw, err := b.start.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read start pin: %w", err)
	}
	stopRaw, err := b.stop.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read stop pin: %w", err)
	}
	emergencyRaw, err := b.emergency.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read emergency pin: %w", err)
	}

	return Sample{
		Start:     startRaw == 0,
		Stop:      stopRaw == 0,
		Emergency: emergencyRaw == 0,
	}, nil
}

// Close releases GPIO resources, leaving the pins as pulled-down inputs.
func (b *RealButtons) Close() error {
	var errs []error

	for _, p := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"start", b.start},
		{"stop", b.stop},
		{"emergency", b.emergency},
	} {
		if p.line == nil {
			continue
		}
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", p.name, err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", p.name, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
