// Command pdswitch runs the USB-PD power sink/switch controller: it
// negotiates input power, arbitrates the primary and secondary output rails
// from a single push button, and manages the status LEDs and cooling fan.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/pdswitch/internal/button"
	"github.com/sweeney/pdswitch/internal/fan"
	"github.com/sweeney/pdswitch/internal/hw"
	"github.com/sweeney/pdswitch/internal/mqtt"
	"github.com/sweeney/pdswitch/internal/pd"
	"github.com/sweeney/pdswitch/internal/signal"
	"github.com/sweeney/pdswitch/internal/status"
	"github.com/sweeney/pdswitch/internal/sysmode"
	"github.com/sweeney/pdswitch/internal/telemetry"
	"github.com/sweeney/pdswitch/internal/vbus"
	"github.com/sweeney/pdswitch/internal/web"
)

type options struct {
	chip        string
	pinButton   int
	pinVinEn    int
	pinVbusEn   int
	pinVbusLed  int
	pinFan      int
	pwmChannel  int
	debounce    time.Duration
	longPress   time.Duration
	uiTick      time.Duration
	fanTick     time.Duration
	sampleTick  time.Duration
	telemetry   string
	broker      string
	heartbeat   time.Duration
	httpAddr    string
	i2cBus      string
	pdMinMv     uint
	pdMaxMv     uint
	pdMa        uint
	printCaps   bool
}

func main() {
	var o options
	flag.StringVar(&o.chip, "chip", "gpiochip0", "GPIO chip device name")
	flag.IntVar(&o.pinButton, "pin-button", hw.DefaultPinButton, "BCM pin for the push button")
	flag.IntVar(&o.pinVinEn, "pin-vin-en", hw.DefaultPinVinEn, "BCM pin for the primary input enable")
	flag.IntVar(&o.pinVbusEn, "pin-vbus-en", hw.DefaultPinVbusEn, "BCM pin for the secondary output enable")
	flag.IntVar(&o.pinVbusLed, "pin-vbus-led", hw.DefaultPinVbusLed, "BCM pin for the bicolor secondary LED")
	flag.IntVar(&o.pinFan, "pin-fan", hw.DefaultPinFan, "BCM pin for the fan switch")
	flag.IntVar(&o.pwmChannel, "pwm-channel", hw.DefaultPWMChannel, "PWM channel for the status LED")
	flag.DurationVar(&o.debounce, "debounce", button.DefaultDebounce, "Button debounce duration")
	flag.DurationVar(&o.longPress, "long-press", button.DefaultLongPress, "Long-press threshold")
	flag.DurationVar(&o.uiTick, "ui-tick", sysmode.DefaultInterval, "Coordinator/LED loop cadence")
	flag.DurationVar(&o.fanTick, "fan-tick", fan.DefaultInterval, "Fan control cadence")
	flag.DurationVar(&o.sampleTick, "sample-tick", telemetry.DefaultInterval, "Telemetry sampling cadence")
	flag.StringVar(&o.telemetry, "telemetry", "/run/pdswitch/telemetry.json", "Telemetry sample file written by the measurement daemon")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&o.i2cBus, "i2c", "1", "I2C bus for the PD port controller (empty to disable PD)")
	flag.UintVar(&o.pdMinMv, "pd-min-mv", 9000, "Minimum acceptable PD supply voltage (mV)")
	flag.UintVar(&o.pdMaxMv, "pd-max-mv", 20000, "Maximum acceptable PD supply voltage (mV)")
	flag.UintVar(&o.pdMa, "pd-ma", 3000, "Required PD supply current (mA)")
	flag.BoolVar(&o.printCaps, "print-caps", false, "Print PD source capabilities and exit")
	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	if o.printCaps {
		return printCapabilities(o)
	}

	clock := clockwork.NewRealClock()
	startTime := clock.Now()

	// Hardware outputs, one owner each.
	vinEn, err := hw.NewRealLine(o.chip, o.pinVinEn)
	if err != nil {
		return fmt.Errorf("init vin enable: %w", err)
	}
	defer vinEn.Close()
	vbusEn, err := hw.NewRealLine(o.chip, o.pinVbusEn)
	if err != nil {
		return fmt.Errorf("init vbus enable: %w", err)
	}
	defer vbusEn.Close()
	vbusLed, err := hw.NewRealLine(o.chip, o.pinVbusLed)
	if err != nil {
		return fmt.Errorf("init vbus led: %w", err)
	}
	defer vbusLed.Close()
	fanPin, err := hw.NewRealLine(o.chip, o.pinFan)
	if err != nil {
		return fmt.Errorf("init fan pin: %w", err)
	}
	defer fanPin.Close()
	statusLed, err := hw.NewRealPWM(o.pwmChannel, 1_000_000) // 1kHz
	if err != nil {
		return fmt.Errorf("init status led pwm: %w", err)
	}
	defer statusLed.Close()

	buttonPin, err := button.NewRealPin(o.chip, o.pinButton)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer buttonPin.Close()

	// Shared signal fabric: constructed here, handed to each coordinator.
	fabric := struct {
		bus       *signal.Bus
		reset     *signal.Latch
		mode      *signal.Value[sysmode.Mode]
		vbusState *signal.Value[bool]
		fanState  *signal.Value[fan.Status]
		primary   *signal.Value[float64]
		secondary *signal.Value[float64]
		temp      *signal.Value[float64]
		fanRPM    *signal.Value[int]
	}{
		bus:       signal.NewBus(),
		reset:     &signal.Latch{},
		mode:      &signal.Value[sysmode.Mode]{},
		vbusState: &signal.Value[bool]{},
		fanState:  &signal.Value[fan.Status]{},
		primary:   &signal.Value[float64]{},
		secondary: &signal.Value[float64]{},
		temp:      &signal.Value[float64]{},
		fanRPM:    &signal.Value[int]{},
	}

	tracker := status.NewTracker(startTime, status.Config{
		DebounceMs:  o.debounce.Milliseconds(),
		LongPressMs: o.longPress.Milliseconds(),
		UITickMs:    o.uiTick.Milliseconds(),
		FanTickMs:   o.fanTick.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		HTTPPort:    o.httpAddr,
		PDTargetMv:  int64(o.pdMaxMv),
	})

	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if o.broker != "" {
		real, err := mqtt.NewRealPublisher(o.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		connStatus = real
	}

	detector := button.NewDetector(clock, buttonPin, o.debounce, o.longPress)
	sampler := telemetry.NewSampler(telemetry.NewFileReader(o.telemetry), clock, o.sampleTick, telemetry.Outputs{
		Primary:     fabric.primary,
		Secondary:   fabric.secondary,
		Temperature: fabric.temp,
		FanRPM:      fabric.fanRPM,
	})
	modeCoord := sysmode.New(
		sysmode.Inputs{Events: fabric.bus.Subscribe(), VbusEnabled: fabric.vbusState, Primary: fabric.primary},
		sysmode.Outputs{Enable: vinEn, LED: statusLed, Reset: fabric.reset, Mode: fabric.mode},
	)
	vbusCoord := vbus.New(
		vbus.Inputs{Events: fabric.bus.Subscribe(), Mode: fabric.mode, Secondary: fabric.secondary, Reset: fabric.reset},
		vbus.Outputs{Enable: vbusEn, LED: vbusLed, State: fabric.vbusState},
	)
	fanCtl := fan.New(fanPin, fabric.temp, fabric.fanState, startTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	start := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	start(func() { runDetector(ctx, detector, fabric.bus, tracker) })
	start(func() { sampler.Run(ctx) })
	start(func() { modeCoord.Run(ctx, clock, o.uiTick) })
	start(func() { vbusCoord.Run(ctx, clock, o.uiTick) })
	start(func() { fanCtl.Run(ctx, clock, o.fanTick) })

	if o.i2cBus != "" {
		sink, closer, err := newSink(o)
		if err != nil {
			// PD is not on the critical path: the switch still works from
			// whatever power is present.
			log.Printf("pd: disabled: %v", err)
		} else {
			defer closer.Close()
			start(func() { sink.Run(ctx) })
			start(func() { trackPDReady(ctx, clock, sink, tracker) })
		}
	}

	rep := &reporter{
		tracker:    tracker,
		publisher:  publisher,
		connStatus: connStatus,
		mode:       fabric.mode,
		vbusState:  fabric.vbusState,
		fanState:   fabric.fanState,
		primary:    fabric.primary,
		secondary:  fabric.secondary,
		temp:       fabric.temp,
		fanRPM:     fabric.fanRPM,
		heartbeat:  o.heartbeat,
	}
	start(func() { rep.run(ctx, clock) })

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	if publisher != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	log.Printf("started: debounce=%v long-press=%v ui-tick=%v fan-tick=%v broker=%q",
		o.debounce, o.longPress, o.uiTick, o.fanTick, o.broker)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received %v, shutting down", s)

	if publisher != nil {
		name := "SIGTERM"
		if s == syscall.SIGINT {
			name = "SIGINT"
		}
		snap := tracker.Snapshot()
		shutdown := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "SHUTDOWN",
			Reason:     name,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
		}
		if err := publisher.PublishSystem(shutdown); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
	}

	cancel()
	wg.Wait()
	return nil
}

// runDetector feeds gestures from the button into the bus.
func runDetector(ctx context.Context, det *button.Detector, bus *signal.Bus, tracker *status.Tracker) {
	for {
		ev, err := det.Next(ctx)
		if err != nil {
			return
		}
		log.Printf("button: %s", ev)
		bus.Publish(ev)
		tracker.CountEvent(string(ev))
	}
}

func newSink(o options) (*pd.Sink, interface{ Close() error }, error) {
	pc, closer, err := pd.NewRealPortController(o.i2cBus)
	if err != nil {
		return nil, nil, err
	}
	sink, err := pd.New(pc, pd.Target{
		MinMilliVolts: uint16(o.pdMinMv),
		MaxMilliVolts: uint16(o.pdMaxMv),
		MilliAmps:     uint16(o.pdMa),
	})
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return sink, closer, nil
}

func trackPDReady(ctx context.Context, clock clockwork.Clock, sink *pd.Sink, tracker *status.Tracker) {
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			tracker.SetPDReady(sink.Ready())
		}
	}
}

// printCapabilities negotiates once and dumps the source advertisement.
func printCapabilities(o options) error {
	sink, closer, err := newSink(o)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go sink.Run(ctx)

	for ctx.Err() == nil {
		if caps := sink.SourceCapabilities(); caps != nil {
			for _, line := range pd.DescribeCapabilities(caps) {
				fmt.Println(line)
			}
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("no source capabilities received")
}
