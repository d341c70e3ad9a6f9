package hw

import "sync"

// FakeLine records every level written to it.
type FakeLine struct {
	mu      sync.Mutex
	level   bool
	History []bool
}

// NewFakeLine creates an inactive FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Set records and applies the level.
func (l *FakeLine) Set(active bool) {
	l.mu.Lock()
	l.level = active
	l.History = append(l.History, active)
	l.mu.Unlock()
}

// Level returns the last written level.
func (l *FakeLine) Level() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Writes returns the number of Set calls.
func (l *FakeLine) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.History)
}

// FakePWM records every duty cycle written to it.
type FakePWM struct {
	mu      sync.Mutex
	duty    int
	History []int
}

// NewFakePWM creates a FakePWM at zero duty.
func NewFakePWM() *FakePWM {
	return &FakePWM{}
}

// SetDuty records and applies the duty cycle.
func (p *FakePWM) SetDuty(pct int) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	p.mu.Lock()
	p.duty = pct
	p.History = append(p.History, pct)
	p.mu.Unlock()
}

// Duty returns the last written duty cycle.
func (p *FakePWM) Duty() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}
