// Package pd wraps the external USB-PD sink policy engine behind the small
// request/response surface the rest of the daemon needs. Negotiation runs in
// its own goroutine and is never on the critical path of the coordinators:
// they learn about power solely through telemetry and the Ready flag.
package pd

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/oxplot/go-typec"
	"github.com/oxplot/go-typec/pdmsg"
	"github.com/oxplot/go-typec/tcdpm"
	"github.com/oxplot/go-typec/tcpe"
)

// Target is a requested supply operating point.
type Target struct {
	MinMilliVolts uint16
	MaxMilliVolts uint16
	MilliAmps     uint16
}

// Sink negotiates input power with the upstream source through a Type-C port
// controller.
type Sink struct {
	pe *tcpe.PolicyEngine

	mu     sync.Mutex
	policy tcdpm.CVPolicy
	caps   []pdmsg.PDO
	ready  bool
}

// New creates a sink bound to the given port controller with an initial
// target. The engine does not run until Run is called.
func New(pc typec.PortController, target Target) (*Sink, error) {
	s := &Sink{pe: tcpe.New(pc)}
	if err := s.setTarget(target); err != nil {
		return nil, err
	}
	s.pe.SetCapabilityEvaluator(s)
	s.pe.SetEventHandler(tcpe.EventHandlerFunc(s.handleEvent))
	return s, nil
}

// Request renegotiates the supply contract for the given target. The current
// contract is torn down; power is briefly lost while the source re-advertises.
func (s *Sink) Request(target Target) error {
	if err := s.setTarget(target); err != nil {
		return err
	}
	s.pe.Reset()
	return nil
}

func (s *Sink) setTarget(target Target) error {
	p := tcdpm.CVPolicy{
		MinVoltage:         target.MinMilliVolts,
		MaxVoltage:         target.MaxMilliVolts,
		Current:            target.MilliAmps,
		PreferLowerVoltage: true,
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pd: invalid target: %w", err)
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	return nil
}

// EvaluateCapabilities records the source advertisement and delegates
// selection to the current constant-voltage policy. It is called by the
// policy engine whenever source capabilities arrive.
func (s *Sink) EvaluateCapabilities(pdos []pdmsg.PDO) pdmsg.RequestDO {
	s.mu.Lock()
	s.caps = append(s.caps[:0], pdos...)
	p := s.policy
	s.mu.Unlock()
	return p.EvaluateCapabilities(pdos)
}

func (s *Sink) handleEvent(ev tcpe.Event) {
	switch ev {
	case tcpe.EventPowerReady:
		s.setReady(true)
		log.Printf("pd: power ready")
	case tcpe.EventPowerNotReady:
		s.setReady(false)
		log.Printf("pd: power not ready")
	case tcpe.EventAccepted:
		log.Printf("pd: request accepted by source")
	case tcpe.EventRejected:
		log.Printf("pd: request rejected by source")
	}
}

func (s *Sink) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Ready reports whether a negotiated contract is in effect.
func (s *Sink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SourceCapabilities returns a copy of the most recent source advertisement,
// or nil if none has been received.
func (s *Sink) SourceCapabilities() []pdmsg.PDO {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.caps == nil {
		return nil
	}
	out := make([]pdmsg.PDO, len(s.caps))
	copy(out, s.caps)
	return out
}

// DescribeCapabilities renders the advertisement for logs and the
// -print-caps flag.
func DescribeCapabilities(pdos []pdmsg.PDO) []string {
	out := make([]string, 0, len(pdos))
	for i, p := range pdos {
		switch p.Type() {
		case pdmsg.PDOTypeFixedSupply:
			f := pdmsg.FixedSupplyPDO(p)
			out = append(out, fmt.Sprintf("%d: fixed %dmV %dmA", i+1, f.Voltage(), f.MaxCurrent()))
		case pdmsg.PDOTypePPS:
			pps := pdmsg.PPSPDO(p)
			out = append(out, fmt.Sprintf("%d: pps %d-%dmV %dmA", i+1, pps.MinVoltage(), pps.MaxVoltage(), pps.MaxCurrent()))
		default:
			out = append(out, fmt.Sprintf("%d: unsupported PDO type", i+1))
		}
	}
	return out
}

// Run drives the policy engine until ctx is done.
func (s *Sink) Run(ctx context.Context) {
	s.pe.Run(ctx)
}
