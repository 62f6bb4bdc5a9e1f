package sim

import "firec2-sim/internal/telemetry"

// NetworkMetricsWriter handles sampled link-quality rows.
type NetworkMetricsWriter interface {
	WriteNetworkMetrics(telemetry.NetworkMetricsRow) error
}

// Optional: writers may support batch mode for metrics rows.
type batchNetworkMetricsWriter interface {
	WriteNetworkMetricsBatch([]telemetry.NetworkMetricsRow) error
}
