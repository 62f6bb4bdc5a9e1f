package sim

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"firec2-sim/internal/telemetry"
)

func TestSQLiteWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	w, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("NewSQLiteWriter: %v", err)
	}

	ts := time.Unix(42, 0).UTC()
	states := []telemetry.NodeStateRow{
		{RunID: "r1", NodeID: 7, ReportedC: 21.5, AttackMode: "active", IsAttacker: true, Timestamp: ts},
		{RunID: "r1", NodeID: 8, ReportedC: 22.1, AttackMode: "dormant", Timestamp: ts},
	}
	if err := w.WriteStates(states); err != nil {
		t.Fatalf("WriteStates: %v", err)
	}
	if err := w.WriteCovertEvent(telemetry.CovertEventRow{
		RunID: "r1", NodeID: 7, Direction: "uplink", Kind: "beacon",
		Bit: 1, DecodedBit: -1, GapS: 0, Timestamp: ts,
	}); err != nil {
		t.Fatalf("WriteCovertEvent: %v", err)
	}
	if err := w.WriteFireSample(telemetry.FireSampleRow{RunID: "r1", NodeID: 35, Ignited: true, Timestamp: ts}); err != nil {
		t.Fatalf("WriteFireSample: %v", err)
	}
	if err := w.WritePacket(telemetry.PacketRow{RunID: "r1", Src: 7, Dst: -1, Kind: "telemetry", Bytes: 128, Timestamp: ts}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := w.WriteAttackEvent(telemetry.AttackEventRow{RunID: "r1", NodeID: 7, Event: "activated", Timestamp: ts}); err != nil {
		t.Fatalf("WriteAttackEvent: %v", err)
	}
	if err := w.WriteNetworkMetrics(telemetry.NetworkMetricsRow{RunID: "r1", NodeID: 7, RSSIdBm: -70, Timestamp: ts}); err != nil {
		t.Fatalf("WriteNetworkMetrics: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	counts := map[string]int{
		telemetry.NodeStateTableName:   2,
		telemetry.CovertEventTableName: 1,
		telemetry.FireSampleTableName:  1,
		telemetry.PacketTableName:      1,
		telemetry.AttackEventTableName: 1,
		telemetry.NetMetricsTableName:  1,
	}
	for tbl, want := range counts {
		var got int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", tbl)).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", tbl, err)
		}
		if got != want {
			t.Fatalf("%s rows = %d, want %d", tbl, got, want)
		}
	}

	var (
		reported float64
		mode     string
		attacker int
	)
	err = db.QueryRow(fmt.Sprintf(
		"SELECT reported_temp_c, attack_mode, is_attacker FROM %s WHERE node_id = 7",
		telemetry.NodeStateTableName)).Scan(&reported, &mode, &attacker)
	if err != nil {
		t.Fatalf("query state: %v", err)
	}
	if reported != 21.5 || mode != "active" || attacker != 1 {
		t.Fatalf("state row = (%v, %s, %d)", reported, mode, attacker)
	}

	var (
		kind    string
		bit     int
		decoded int
	)
	err = db.QueryRow(fmt.Sprintf(
		"SELECT kind, bit, decoded_bit FROM %s", telemetry.CovertEventTableName)).Scan(&kind, &bit, &decoded)
	if err != nil {
		t.Fatalf("query covert: %v", err)
	}
	if kind != "beacon" || bit != 1 || decoded != -1 {
		t.Fatalf("covert row = (%s, %d, %d)", kind, bit, decoded)
	}
}

func TestSQLiteWriterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	w, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("NewSQLiteWriter: %v", err)
	}
	if err := w.WritePacket(telemetry.PacketRow{RunID: "r1", Src: 1, Timestamp: time.Unix(0, 0)}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must keep the existing rows; the schema is idempotent.
	w2, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	if err := w2.WritePacket(telemetry.PacketRow{RunID: "r1", Src: 2, Timestamp: time.Unix(1, 0)}); err != nil {
		t.Fatalf("WritePacket after reopen: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("close reopened: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var got int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", telemetry.PacketTableName)).Scan(&got); err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 2 {
		t.Fatalf("packet rows = %d, want 2", got)
	}
}
