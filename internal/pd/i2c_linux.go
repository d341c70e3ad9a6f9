//go:build linux

package pd

import (
	"fmt"
	"io"

	"github.com/oxplot/go-typec/tcpcdriver/fusb302"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// NewRealPortController opens the named I2C bus and returns a FUSB302 port
// controller on it. The returned closer releases the bus.
func NewRealPortController(busName string) (*fusb302.FUSB302, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	if err := bus.SetSpeed(physic.MegaHertz); err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("set i2c speed: %w", err)
	}
	return fusb302.New(bus, fusb302.FUSB302BMPX), bus, nil
}
