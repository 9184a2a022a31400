package logic

import "time"

// Detector turns a stream of signal state samples into publishable events.
type Detector struct {
	prev          SignalState
	prevMode      Mode
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a new event detector.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new state sample and returns any events that should be emitted.
// The first sample establishes the baseline and emits nothing.
func (d *Detector) Process(input Input) []Event {
	cur := input.State
	mode := cur.Mode()

	if !d.baselined {
		d.prev = cur
		d.prevMode = mode
		d.baselined = true
		return nil
	}

	var events []Event
	emit := func(t EventType) {
		events = append(events, Event{
			Timestamp: input.Time,
			Type:      t,
			Active:    cur.Active(),
			Density:   cur.Density,
			Mode:      mode,
		})
	}

	// Mode transitions first, then density, then lamps.
	if mode != d.prevMode {
		switch {
		case mode == ModeStopped:
			emit(EventStopped)
		case d.prevMode == ModeEmergency:
			emit(EventEmergencyOff)
		case d.prevMode == ModeStopped && mode == ModeNormal:
			emit(EventStarted)
		}
		if mode == ModeEmergency {
			if d.prevMode == ModeStopped {
				emit(EventStarted)
			}
			emit(EventEmergencyOn)
		}
	}

	if cur.Density != d.prev.Density {
		emit(EventDensityChanged)
	}

	// Emergency blinks are not published; only normal-mode activations are.
	active := cur.Active()
	if mode == ModeNormal && active != NoSlot && (active != d.prev.Active() || d.prevMode != ModeNormal) {
		emit(signalEvent(active))
		if active == SlotGreen && d.prev.Active() == SlotRed {
			d.eventCounts.Cycles++
		}
	}

	for _, e := range events {
		switch e.Type {
		case EventSignalRed:
			d.eventCounts.Red++
		case EventSignalYellow:
			d.eventCounts.Yellow++
		case EventSignalGreen:
			d.eventCounts.Green++
		case EventEmergencyOn:
			d.eventCounts.Emergencies++
		case EventStopped:
			d.eventCounts.Stops++
		}
	}

	d.prev = cur
	d.prevMode = mode
	return events
}

func signalEvent(s Slot) EventType {
	switch s {
	case SlotRed:
		return EventSignalRed
	case SlotYellow:
		return EventSignalYellow
	}
	return EventSignalGreen
}

// IsBaselined returns whether the detector has seen its first sample.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// EventCountsSnapshot returns a copy of the event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
