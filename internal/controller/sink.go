package controller

// ChanSink is a Sink that hands notifications to another goroutine over
// channels. Repaints coalesce into one pending signal and ticks keep only
// the latest value, so the loop never blocks on a slow consumer.
type ChanSink struct {
	repaint chan struct{}
	ticks   chan int
}

// NewChanSink creates a ChanSink.
func NewChanSink() *ChanSink {
	return &ChanSink{
		repaint: make(chan struct{}, 1),
		ticks:   make(chan int, 1),
	}
}

// OnRepaintRequested queues a repaint unless one is already pending.
func (s *ChanSink) OnRepaintRequested() {
	select {
	case s.repaint <- struct{}{}:
	default:
	}
}

// OnTick queues remaining, replacing any value not yet consumed.
func (s *ChanSink) OnTick(remaining int) {
	for {
		select {
		case s.ticks <- remaining:
			return
		default:
		}
		select {
		case <-s.ticks:
		default:
		}
	}
}

// Repaints delivers coalesced repaint requests.
func (s *ChanSink) Repaints() <-chan struct{} {
	return s.repaint
}

// Ticks delivers the latest countdown value.
func (s *ChanSink) Ticks() <-chan int {
	return s.ticks
}

// MultiSink fans notifications out to several sinks in order.
type MultiSink []Sink

// OnTick forwards to every sink.
func (m MultiSink) OnTick(remaining int) {
	for _, s := range m {
		s.OnTick(remaining)
	}
}

// OnRepaintRequested forwards to every sink.
func (m MultiSink) OnRepaintRequested() {
	for _, s := range m {
		s.OnRepaintRequested()
	}
}
