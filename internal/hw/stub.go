//go:build !linux

package hw

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chip string, offset int) (*RealLine, error) {
	return nil, errors.New("hw: gpio not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (l *RealLine) Set(active bool) {}

// Close is a no-op on non-Linux platforms.
func (l *RealLine) Close() error { return nil }

// RealPWM is not available on non-Linux platforms.
type RealPWM struct{}

// NewRealPWM returns an error on non-Linux platforms.
func NewRealPWM(channel int, periodNs int) (*RealPWM, error) {
	return nil, errors.New("hw: pwm not supported on this platform (requires Linux)")
}

// SetDuty is not implemented on non-Linux platforms.
func (p *RealPWM) SetDuty(pct int) {}

// Close is a no-op on non-Linux platforms.
func (p *RealPWM) Close() error { return nil }
