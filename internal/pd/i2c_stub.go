//go:build !linux

package pd

import (
	"errors"
	"io"

	"github.com/oxplot/go-typec/tcpcdriver/fusb302"
)

// NewRealPortController is not available on non-Linux platforms.
func NewRealPortController(busName string) (*fusb302.FUSB302, io.Closer, error) {
	return nil, nil, errors.New("pd: i2c not supported on this platform (requires Linux)")
}
