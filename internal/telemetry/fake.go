package telemetry

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted samples.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted readings. Each Read consumes the next one;
	// when exhausted, the last sample is returned repeatedly.
	Samples []Sample

	index int

	// ReadError, if set, is returned by Read.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Reset rewinds the reader to the first sample.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.index = 0
	f.mu.Unlock()
}
