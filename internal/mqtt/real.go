package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/traffic-signal/internal/logic"
)

// bufferCapacity is the number of messages held while the broker is unreachable.
const bufferCapacity = 100

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed in order
// once the client reconnects.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	buf       *outbox
	handler   func(logic.Command)
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher connected to the given broker.
// The broker publishes a SHUTDOWN/MQTT_DISCONNECT system event on our behalf
// if the connection drops without a clean disconnect.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{buf: newOutbox(bufferCapacity)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect resubscribes and replays anything buffered while offline.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	handler := p.handler
	pending, dropped := p.buf.drain()
	p.mu.Unlock()

	if handler != nil {
		p.subscribe(c, handler)
	}

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}
	// paho runs this handler on its own goroutine, so the subscribe above
	// may wait. Replayed messages are not awaited and are not retried.
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	}
}

// Subscribe registers handler for remote commands. Malformed messages are logged and dropped.
func (p *RealPublisher) Subscribe(handler func(logic.Command)) error {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		// onConnect subscribes once the connection is up.
		return nil
	}
	return p.subscribe(p.client, handler)
}

func (p *RealPublisher) subscribe(c paho.Client, handler func(logic.Command)) error {
	token := c.Subscribe(TopicCommands, 1, commandHandler(handler))
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// commandHandler adapts handler to paho, dropping malformed payloads.
func commandHandler(handler func(logic.Command)) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		cmd, err := ParseCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: ignoring command on %s: %v", msg.Topic(), err)
			return
		}
		handler(cmd)
	}
}

// Publish sends a signal event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the client currently holds a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
