//go:build !linux

package button

import (
	"context"
	"errors"
)

// RealPin is not available on non-Linux platforms.
type RealPin struct{}

// NewRealPin returns an error on non-Linux platforms.
func NewRealPin(chip string, offset int) (*RealPin, error) {
	return nil, errors.New("button: gpio not supported on this platform (requires Linux)")
}

// IsActive is not implemented on non-Linux platforms.
func (p *RealPin) IsActive() bool { return false }

// WaitForActive is not implemented on non-Linux platforms.
func (p *RealPin) WaitForActive(ctx context.Context) error {
	return errors.New("button: gpio not supported")
}

// WaitForInactive is not implemented on non-Linux platforms.
func (p *RealPin) WaitForInactive(ctx context.Context) error {
	return errors.New("button: gpio not supported")
}

// Close is a no-op on non-Linux platforms.
func (p *RealPin) Close() error { return nil }
