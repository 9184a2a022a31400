//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/traffic-signal/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealLamps is not available on non-Linux platforms.
type RealLamps struct{}

// NewRealLamps returns an error on non-Linux platforms.
func NewRealLamps(chipName string, pins LampPins) (*RealLamps, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (l *RealLamps) Set(lights [logic.NumSlots]bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *RealLamps) Close() error {
	return nil
}

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(chipName string, pins ButtonPins) (*RealButtons, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (b *RealButtons) Read() (Sample, error) {
	return Sample{}, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealButtons) Close() error {
	return nil
}
