package telemetry

import "time"

// NetworkMetricsRow captures sampled per-node link quality metrics.
type NetworkMetricsRow struct {
	RunID          string    `json:"run_id"`  // TAG
	NodeID         int       `json:"node_id"` // TAG
	RSSIdBm        float64   `json:"rssi_dbm"`
	SNRdB          float64   `json:"snr_db"`
	PacketsSent    int       `json:"packets_sent"`
	PacketsDropped int       `json:"packets_dropped"`
	SimSeconds     float64   `json:"sim_seconds"`
	Timestamp      time.Time `json:"ts"` // TIME INDEX
}

func (NetworkMetricsRow) TableName() string { return NetMetricsTableName }
