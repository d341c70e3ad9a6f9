// Package hw abstracts the hardware outputs the coordinators drive: boolean
// enable/LED lines and a PWM channel for the dimmable status LED. Writes are
// synchronous register-level operations and are treated as infallible; only
// acquisition and teardown can fail.
package hw

// Line is a single output pin with a logical level.
type Line interface {
	// Set drives the pin active or inactive.
	Set(active bool)
}

// PWM is a duty-cycle output. Duty is expressed 0-100; polarity inversion
// for open-drain wiring is the caller's concern.
type PWM interface {
	// SetDuty sets the output duty cycle in percent, clamped to [0, 100].
	SetDuty(pct int)
}

// Default pin assignments, BCM numbering.
const (
	DefaultPinButton   = 8  // push button input
	DefaultPinVinEn    = 15 // primary input enable
	DefaultPinVbusEn   = 7  // secondary output enable
	DefaultPinVbusLed  = 5  // bicolor secondary LED (low = green, high = red)
	DefaultPinFan      = 10 // fan switch
	DefaultPWMChannel  = 0  // status LED PWM channel
)
