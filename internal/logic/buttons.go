package logic

import "time"

// ButtonState represents the debounced state of a push button.
type ButtonState string

const (
	ButtonPressed  ButtonState = "PRESSED"
	ButtonReleased ButtonState = "RELEASED"
)

// ButtonInput represents a single sample of the control panel buttons.
type ButtonInput struct {
	Start     bool // true = pressed (already inverted from raw GPIO)
	Stop      bool
	Emergency bool
	Time      time.Time
}

// ChannelState tracks debounce state for a single button.
type ChannelState struct {
	// Current stable (debounced) state
	Stable ButtonState
	// Pending state during debounce
	Pending ButtonState
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// ButtonDebouncer turns raw button samples into commands on debounced presses.
type ButtonDebouncer struct {
	debounceDuration time.Duration
	start            ChannelState
	stop             ChannelState
	emergency        ChannelState
	baselined        bool
}

// NewButtonDebouncer creates a debouncer with the given debounce duration.
func NewButtonDebouncer(debounceDuration time.Duration) *ButtonDebouncer {
	return &ButtonDebouncer{debounceDuration: debounceDuration}
}

// Process takes a new sample and returns a command for every button that
// completed a debounced RELEASED → PRESSED transition.
// Commands are only returned after baseline is established, so a button held
// at startup never fires.
func (b *ButtonDebouncer) Process(input ButtonInput) []Command {
	startPress := b.processChannel(&b.start, buttonState(input.Start), input.Time)
	stopPress := b.processChannel(&b.stop, buttonState(input.Stop), input.Time)
	emergencyPress := b.processChannel(&b.emergency, buttonState(input.Emergency), input.Time)

	if !b.baselined {
		if b.start.Baselined && b.stop.Baselined && b.emergency.Baselined {
			b.baselined = true
		}
		return nil
	}

	// Stop wins over start when both land on the same sample.
	var cmds []Command
	if stopPress {
		cmds = append(cmds, Command{Action: ActionStop})
	}
	if startPress {
		cmds = append(cmds, Command{Action: ActionStart})
	}
	if emergencyPress {
		cmds = append(cmds, Command{Action: ActionEmergency})
	}
	return cmds
}

// processChannel handles debounce logic for a single button.
// Returns true when a debounced press completes.
func (b *ButtonDebouncer) processChannel(ch *ChannelState, newState ButtonState, now time.Time) bool {
	if !ch.Baselined {
		if ch.Pending == "" {
			ch.Pending = newState
			ch.PendingSince = now
			return false
		}

		if ch.Pending != newState {
			// State changed during baseline, restart
			ch.Pending = newState
			ch.PendingSince = now
			return false
		}

		if now.Sub(ch.PendingSince) >= b.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return false
	}

	if newState == ch.Stable {
		ch.Pending = ""
		return false
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
		return false
	}

	if now.Sub(ch.PendingSince) >= b.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return newState == ButtonPressed
	}

	return false
}

// IsBaselined returns whether all buttons have a stable baseline.
func (b *ButtonDebouncer) IsBaselined() bool {
	return b.baselined
}

func buttonState(pressed bool) ButtonState {
	if pressed {
		return ButtonPressed
	}
	return ButtonReleased
}
