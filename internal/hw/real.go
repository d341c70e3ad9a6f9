//go:build linux

package hw

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives an output pin through the Linux GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
}

// NewRealLine requests the given line as an output, initially inactive.
func NewRealLine(chip string, offset int) (*RealLine, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	return &RealLine{line: line}, nil
}

// Set drives the pin. Write failures are logged, not returned: the kernel
// only fails here if the line was lost, which is fatal anyway.
func (l *RealLine) Set(active bool) {
	v := 0
	if active {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		log.Printf("hw: set line: %v", err)
	}
}

// Close drives the pin inactive and releases it.
func (l *RealLine) Close() error {
	if err := l.line.SetValue(0); err != nil {
		log.Printf("hw: clear line on close: %v", err)
	}
	return l.line.Close()
}

// RealPWM drives a kernel PWM channel through the sysfs interface, the only
// PWM path available from userspace on the Pi.
type RealPWM struct {
	dir      string
	periodNs int
}

// NewRealPWM exports the given channel of pwmchip0 and programs its period.
func NewRealPWM(channel int, periodNs int) (*RealPWM, error) {
	base := "/sys/class/pwm/pwmchip0"
	dir := filepath.Join(base, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(base, "export"), []byte(strconv.Itoa(channel)), 0644); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, err)
		}
	}
	p := &RealPWM{dir: dir, periodNs: periodNs}
	if err := p.write("period", periodNs); err != nil {
		return nil, err
	}
	if err := p.write("enable", 1); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDuty sets the duty cycle in percent.
func (p *RealPWM) SetDuty(pct int) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	if err := p.write("duty_cycle", p.periodNs/100*pct); err != nil {
		log.Printf("hw: set pwm duty: %v", err)
	}
}

// Close disables the channel.
func (p *RealPWM) Close() error {
	return p.write("enable", 0)
}

func (p *RealPWM) write(attr string, v int) error {
	path := filepath.Join(p.dir, attr)
	if err := os.WriteFile(path, []byte(strconv.Itoa(v)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
