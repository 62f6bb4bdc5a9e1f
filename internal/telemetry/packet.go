package telemetry

import "time"

// PacketRow records one packet handed to the network, delivered or not.
type PacketRow struct {
	RunID      string    `json:"run_id"` // TAG
	Src        int       `json:"src"`    // TAG
	Dst        int       `json:"dst"`
	Port       int       `json:"port"`
	Kind       string    `json:"kind"`
	Bytes      int       `json:"bytes"`
	Dropped    bool      `json:"dropped"`
	DelayMs    float64   `json:"delay_ms"`
	SimSeconds float64   `json:"sim_seconds"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

func (PacketRow) TableName() string { return PacketTableName }
