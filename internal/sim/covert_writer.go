package sim

import "firec2-sim/internal/telemetry"

// CovertEventWriter handles covert-channel observations.
type CovertEventWriter interface {
	WriteCovertEvent(telemetry.CovertEventRow) error
}

// Optional: writers may support batch mode for covert events.
type batchCovertEventWriter interface {
	WriteCovertEvents([]telemetry.CovertEventRow) error
}
