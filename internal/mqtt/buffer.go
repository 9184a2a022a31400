package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues messages while the broker is unreachable, oldest first.
// A retained message replaces any retained message already queued for the
// same topic, since the broker would only keep the last one. When the queue
// is full the oldest message is dropped. Callers hold RealPublisher.mu.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int
}

func newOutbox(limit int) *outbox {
	return &outbox{msgs: make([]bufferedMsg, 0, limit), limit: limit}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		kept := o.msgs[:0]
		for _, m := range o.msgs {
			if !(m.retained && m.topic == msg.topic) {
				kept = append(kept, m)
			}
		}
		o.msgs = kept
	}

	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.limit)
		}
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// drain empties the outbox and reports how many messages were lost to
// overflow since the last drain.
func (o *outbox) drain() ([]bufferedMsg, int) {
	if len(o.msgs) == 0 {
		dropped := o.dropped
		o.dropped = 0
		return nil, dropped
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	dropped := o.dropped
	o.msgs = o.msgs[:0]
	o.dropped = 0
	return out, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
