package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/traffic-signal/internal/logic"
)

// FakeLamps records lamp writes for test assertions.
type FakeLamps struct {
	mu sync.Mutex

	// History contains every state written, in order.
	History [][logic.NumSlots]bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeLamps creates a FakeLamps.
func NewFakeLamps() *FakeLamps {
	return &FakeLamps{}
}

// Set records the lamp state.
func (f *FakeLamps) Set(lights [logic.NumSlots]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.History = append(f.History, lights)
	return nil
}

// Current returns the last written state, or all dark if nothing was written.
func (f *FakeLamps) Current() [logic.NumSlots]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.History) == 0 {
		return [logic.NumSlots]bool{}
	}
	return f.History[len(f.History)-1]
}

// Close marks the lamps as closed.
func (f *FakeLamps) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeButtons is a test double that returns scripted button values.
type FakeButtons struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeButtons creates a FakeButtons with the given samples.
func NewFakeButtons(samples []Sample) *FakeButtons {
	return &FakeButtons{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButtons) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the buttons as closed.
func (f *FakeButtons) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeButtons) Reset() {
	f.index = 0
	f.Closed = false
}
