package sim

import "firec2-sim/internal/telemetry"

// FireSampleWriter handles fire-dynamics samples.
type FireSampleWriter interface {
	WriteFireSample(telemetry.FireSampleRow) error
}

// Optional: writers may support batch mode for fire samples.
type batchFireSampleWriter interface {
	WriteFireSamples([]telemetry.FireSampleRow) error
}
