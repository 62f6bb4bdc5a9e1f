package telemetry

import "time"

// Attack event types.
const (
	AttackEventActivated  = "activated"
	AttackEventModeChange = "mode_change"
	AttackEventCommandRx  = "command_rx"
	AttackEventRejected   = "command_rejected"
)

// AttackEventRow records a backdoor lifecycle event on one node.
type AttackEventRow struct {
	RunID      string    `json:"run_id"`  // TAG
	NodeID     int       `json:"node_id"` // TAG
	Event      string    `json:"event"`
	FromMode   string    `json:"from_mode,omitempty"`
	ToMode     string    `json:"to_mode,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	SimSeconds float64   `json:"sim_seconds"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

func (AttackEventRow) TableName() string { return AttackEventTableName }
