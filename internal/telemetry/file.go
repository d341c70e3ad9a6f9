package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileReader reads samples from a JSON file maintained by the measurement
// daemon, which owns the ADC hardware and its calibration. The file is
// rewritten atomically by the producer, so each read sees one coherent
// sample.
type FileReader struct {
	path string
}

// fileSample is the on-disk sample format.
type fileSample struct {
	PrimaryVolts   float64 `json:"primary_volts"`
	SecondaryVolts float64 `json:"secondary_volts"`
	TemperatureC   float64 `json:"temperature_c"`
	FanRPM         int     `json:"fan_rpm"`
}

// NewFileReader creates a reader for the given path.
func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

// Read parses the latest sample from the file.
func (r *FileReader) Read() (Sample, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Sample{}, fmt.Errorf("read %s: %w", r.path, err)
	}
	var fs fileSample
	if err := json.Unmarshal(data, &fs); err != nil {
		return Sample{}, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return Sample{
		PrimaryVolts:   fs.PrimaryVolts,
		SecondaryVolts: fs.SecondaryVolts,
		Temperature:    fs.TemperatureC,
		FanRPM:         fs.FanRPM,
	}, nil
}
