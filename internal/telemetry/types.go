// Event row structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// NodeStateRow is a sampled snapshot of one sensor node.
type NodeStateRow struct {
	RunID       string    `json:"run_id"`  // TAG
	NodeID      int       `json:"node_id"` // TAG
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	ActualTempC float64   `json:"actual_temp_c"`
	ReportedC   float64   `json:"reported_temp_c"`
	HeatLevel   float64   `json:"heat_level"`
	OnFire      bool      `json:"on_fire"`
	BurnedOut   bool      `json:"burned_out"`
	AttackMode  string    `json:"attack_mode"`
	IsAttacker  bool      `json:"is_attacker"`
	HistoryLen  int       `json:"history_len"`
	SimSeconds  float64   `json:"sim_seconds"`
	Timestamp   time.Time `json:"ts"` // TIME INDEX
}

// CovertEventRow records one covert-channel observation: a beacon or
// exfil uplink as decoded by the C2 controller, or a command downlink
// as applied by a node.
type CovertEventRow struct {
	RunID      string    `json:"run_id"`  // TAG
	NodeID     int       `json:"node_id"` // TAG
	Direction  string    `json:"direction"`
	Kind       string    `json:"kind"`
	Bit        int       `json:"bit"`
	DecodedBit int       `json:"decoded_bit"`
	GapS       float64   `json:"gap_s"`
	Payload    int       `json:"payload_bytes"`
	Command    string    `json:"command,omitempty"`
	Accepted   bool      `json:"accepted"`
	SimSeconds float64   `json:"sim_seconds"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// FireSampleRow is one fire-dynamics sample for a heated or burning node.
type FireSampleRow struct {
	RunID            string    `json:"run_id"`  // TAG
	NodeID           int       `json:"node_id"` // TAG
	HeatLevel        float64   `json:"heat_level"`
	TempC            float64   `json:"temp_c"`
	OnFire           bool      `json:"on_fire"`
	NeighborsBurning int       `json:"neighbors_burning"`
	Ignited          bool      `json:"ignited"`
	SimSeconds       float64   `json:"sim_seconds"`
	Timestamp        time.Time `json:"ts"` // TIME INDEX
}

// Covert event directions and kinds.
const (
	DirectionUplink   = "uplink"
	DirectionDownlink = "downlink"

	KindBeacon    = "beacon"
	KindExfil     = "exfil"
	KindCommand   = "command"
	KindTelemetry = "telemetry"
)

func tableName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// Table names used by database sinks, overridable via environment.
var (
	NodeStateTableName   = tableName("FIREC2_NODE_STATE_TABLE", "node_states")
	CovertEventTableName = tableName("FIREC2_COVERT_EVENT_TABLE", "covert_events")
	FireSampleTableName  = tableName("FIREC2_FIRE_TABLE", "fire_dynamics")
	PacketTableName      = tableName("FIREC2_PACKET_TABLE", "packets")
	AttackEventTableName = tableName("FIREC2_ATTACK_EVENT_TABLE", "attack_events")
	NetMetricsTableName  = tableName("FIREC2_NET_METRICS_TABLE", "network_metrics")
)

func (NodeStateRow) TableName() string   { return NodeStateTableName }
func (CovertEventRow) TableName() string { return CovertEventTableName }
func (FireSampleRow) TableName() string  { return FireSampleTableName }
