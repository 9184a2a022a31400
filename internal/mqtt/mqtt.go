// Package mqtt provides MQTT publishing and remote commands with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/traffic-signal/internal/logic"
)

// Topic is the MQTT topic for signal events.
const Topic = "traffic/signal/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "traffic/signal/system"

// TopicCommands is the MQTT topic remote controllers publish commands to.
const TopicCommands = "traffic/signal/commands"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a signal event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers remote control commands.
type CommandSource interface {
	// Subscribe registers handler for commands arriving on TopicCommands.
	// The handler runs on the client's goroutine.
	Subscribe(handler func(logic.Command)) error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Signal SignalPayload `json:"signal"`
}

// SignalPayload contains the signal event details.
type SignalPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Active    string `json:"active"`
	Density   string `json:"density"`
	Mode      string `json:"mode"`
}

// FormatPayload creates the JSON payload for a signal event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Signal: SignalPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Active:    event.Active.String(),
			Density:   string(event.Density),
			Mode:      string(event.Mode),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// CommandPayload is the message format accepted on TopicCommands.
type CommandPayload struct {
	Command string `json:"command"`
	Density string `json:"density,omitempty"`
}

// ParseCommand decodes a command message.
// Example: {"command":"density","density":"HIGH"}
func ParseCommand(data []byte) (logic.Command, error) {
	var p CommandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return logic.Command{}, fmt.Errorf("decode command: %w", err)
	}

	action := logic.Action(strings.ToLower(strings.TrimSpace(p.Command)))
	switch action {
	case logic.ActionStart, logic.ActionStop, logic.ActionEmergency:
		return logic.Command{Action: action}, nil
	case logic.ActionDensity:
		d, err := logic.ParseDensity(p.Density)
		if err != nil {
			return logic.Command{}, fmt.Errorf("density command: %w", err)
		}
		return logic.Command{Action: action, Density: d}, nil
	}
	return logic.Command{}, fmt.Errorf("unknown command %q", p.Command)
}
