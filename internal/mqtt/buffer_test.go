package mqtt

import (
	"fmt"
	"testing"
)

func eventMsg(n int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(fmt.Sprintf("event-%d", n))}
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(5)
	msgs, dropped := o.drain()
	if msgs != nil || dropped != 0 {
		t.Errorf("expected nothing from empty outbox, got %v, %d dropped", msgs, dropped)
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 3; i++ {
		o.push(eventMsg(i))
	}
	if o.len() != 3 {
		t.Fatalf("len: got %d, want 3", o.len())
	}

	msgs, dropped := o.drain()
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("event-%d", i); string(m.payload) != want {
			t.Errorf("msg %d: got %q, want %q", i, m.payload, want)
		}
	}
	if o.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", o.len())
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 5; i++ {
		o.push(eventMsg(i))
	}

	msgs, dropped := o.drain()
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 msgs, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("event-%d", i+2); string(m.payload) != want {
			t.Errorf("msg %d: got %q, want %q", i, m.payload, want)
		}
	}

	// The drop count resets with each drain.
	o.push(eventMsg(9))
	if _, dropped := o.drain(); dropped != 0 {
		t.Errorf("dropped after second drain: got %d, want 0", dropped)
	}
}

func TestOutboxRetainedSupersedes(t *testing.T) {
	o := newOutbox(10)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("STARTUP"), qos: 1, retained: true})
	o.push(eventMsg(1))
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("RECONNECTED"), qos: 1})
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("SHUTDOWN"), qos: 1, retained: true})

	msgs, _ := o.drain()
	var got []string
	for _, m := range msgs {
		got = append(got, string(m.payload))
	}
	want := []string{"event-1", "RECONNECTED", "SHUTDOWN"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxRetainedOnlySameTopic(t *testing.T) {
	o := newOutbox(10)
	o.push(bufferedMsg{topic: "a", payload: []byte("a1"), retained: true})
	o.push(bufferedMsg{topic: "b", payload: []byte("b1"), retained: true})
	o.push(bufferedMsg{topic: "a", payload: []byte("a2"), retained: true})

	msgs, _ := o.drain()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 msgs, got %d", len(msgs))
	}
	if string(msgs[0].payload) != "b1" || string(msgs[1].payload) != "a2" {
		t.Errorf("got %q, %q; want b1, a2", msgs[0].payload, msgs[1].payload)
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(5)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte(`{"x":1}`), qos: 1, retained: true})

	msgs, _ := o.drain()
	m := msgs[0]
	if m.topic != TopicSystem || m.qos != 1 || !m.retained || string(m.payload) != `{"x":1}` {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestOutboxDrainIsACopy(t *testing.T) {
	o := newOutbox(5)
	o.push(eventMsg(1))
	msgs, _ := o.drain()
	o.push(eventMsg(2))
	if string(msgs[0].payload) != "event-1" {
		t.Errorf("drained slice changed after push: %q", msgs[0].payload)
	}
}
