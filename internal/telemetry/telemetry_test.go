package telemetry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/pdswitch/internal/signal"
)

func newOutputs() Outputs {
	return Outputs{
		Primary:     &signal.Value[float64]{},
		Secondary:   &signal.Value[float64]{},
		Temperature: &signal.Value[float64]{},
		FanRPM:      &signal.Value[int]{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFirstSamplePrimesUnsmoothed(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{PrimaryVolts: 12.0, SecondaryVolts: 9.0, Temperature: 31.5},
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	s.Poll()

	if v, _ := out.Primary.Get(); v != 12.0 {
		t.Fatalf("primary = %v; want 12.0 (first sample primes the filter)", v)
	}
	if v, _ := out.Secondary.Get(); v != 9.0 {
		t.Fatalf("secondary = %v; want 9.0", v)
	}
	if v, _ := out.Temperature.Get(); v != 31.5 {
		t.Fatalf("temperature = %v; want 31.5", v)
	}
}

func TestVoltagesAreSmoothed(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{PrimaryVolts: 10.0, SecondaryVolts: 5.0, Temperature: 30.0},
		{PrimaryVolts: 20.0, SecondaryVolts: 0.0, Temperature: 40.0},
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	s.Poll()
	s.Poll()

	wantPrimary := 10.0 + emaAlpha*(20.0-10.0)
	if v, _ := out.Primary.Get(); !almostEqual(v, wantPrimary) {
		t.Fatalf("primary = %v; want %v", v, wantPrimary)
	}
	wantSecondary := 5.0 + emaAlpha*(0.0-5.0)
	if v, _ := out.Secondary.Get(); !almostEqual(v, wantSecondary) {
		t.Fatalf("secondary = %v; want %v", v, wantSecondary)
	}
	// Temperature passes through unsmoothed.
	if v, _ := out.Temperature.Get(); v != 40.0 {
		t.Fatalf("temperature = %v; want 40.0", v)
	}
}

func TestSmoothingConverges(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{PrimaryVolts: 0.0},
		{PrimaryVolts: 10.0}, // FakeReader repeats the last sample
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	for i := 0; i < 100; i++ {
		s.Poll()
	}
	if v, _ := out.Primary.Get(); math.Abs(v-10.0) > 0.01 {
		t.Fatalf("primary = %v after 100 polls; want ~10.0", v)
	}
}

func TestFanRPMPassesThroughUnsmoothed(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{FanRPM: 3200},
		{FanRPM: 4100},
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	s.Poll()
	if v, _ := out.FanRPM.Get(); v != 3200 {
		t.Fatalf("fan rpm = %d; want 3200", v)
	}
	s.Poll()
	if v, _ := out.FanRPM.Get(); v != 4100 {
		t.Fatalf("fan rpm = %d; want 4100", v)
	}
}

func TestImplausibleFanRPMReadsAsZero(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{FanRPM: 3200},
		{FanRPM: 52000}, // glitched tachometer period
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	s.Poll()
	s.Poll()
	if v, _ := out.FanRPM.Get(); v != 0 {
		t.Fatalf("fan rpm = %d after implausible reading; want 0", v)
	}
}

func TestReadErrorRetainsPublishedValues(t *testing.T) {
	out := newOutputs()
	reader := NewFakeReader([]Sample{
		{PrimaryVolts: 12.0, SecondaryVolts: 9.0, Temperature: 30.0},
	})
	s := NewSampler(reader, clockwork.NewFakeClock(), 0, out)

	s.Poll()
	reader.ReadError = errors.New("i2c timeout")
	s.Poll()

	if v, _ := out.Primary.Get(); v != 12.0 {
		t.Fatalf("primary = %v after read error; want 12.0 retained", v)
	}

	// Recovery resumes smoothing from the retained state.
	reader.ReadError = nil
	s.Poll()
	if v, _ := out.Primary.Get(); !almostEqual(v, 12.0) {
		t.Fatalf("primary = %v after recovery on a steady input; want 12.0", v)
	}
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.json")
	data := `{"primary_volts": 19.85, "secondary_volts": 5.02, "temperature_c": 41.3, "fan_rpm": 2850}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewFileReader(path)
	sample, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sample.PrimaryVolts != 19.85 || sample.SecondaryVolts != 5.02 || sample.Temperature != 41.3 || sample.FanRPM != 2850 {
		t.Fatalf("sample = %+v", sample)
	}
}

func TestFileReaderMissingFile(t *testing.T) {
	r := NewFileReader(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := r.Read(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileReaderMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileReader(path).Read(); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
