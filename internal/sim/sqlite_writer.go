package sim

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"firec2-sim/internal/telemetry"
)

// SQLiteWriter persists all streams into one SQLite file, one table per
// stream. Batches run inside a single transaction; the journal is WAL so
// a reader can follow a run in progress.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path and ensures
// the stream tables exist.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, ddl := range sqliteSchema() {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &SQLiteWriter{db: db}, nil
}

func sqliteSchema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, node_id INTEGER, row INTEGER, col INTEGER,
			actual_temp_c REAL, reported_temp_c REAL, heat_level REAL,
			on_fire INTEGER, burned_out INTEGER, attack_mode TEXT,
			is_attacker INTEGER, history_len INTEGER,
			sim_seconds REAL, ts TEXT)`, telemetry.NodeStateTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, node_id INTEGER, direction TEXT, kind TEXT,
			bit INTEGER, decoded_bit INTEGER, gap_s REAL,
			payload_bytes INTEGER, command TEXT, accepted INTEGER,
			sim_seconds REAL, ts TEXT)`, telemetry.CovertEventTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, node_id INTEGER, heat_level REAL, temp_c REAL,
			on_fire INTEGER, neighbors_burning INTEGER, ignited INTEGER,
			sim_seconds REAL, ts TEXT)`, telemetry.FireSampleTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, src INTEGER, dst INTEGER, port INTEGER,
			kind TEXT, bytes INTEGER, dropped INTEGER, delay_ms REAL,
			sim_seconds REAL, ts TEXT)`, telemetry.PacketTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, node_id INTEGER, event TEXT, from_mode TEXT,
			to_mode TEXT, detail TEXT, sim_seconds REAL, ts TEXT)`,
			telemetry.AttackEventTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT, node_id INTEGER, rssi_dbm REAL, snr_db REAL,
			packets_sent INTEGER, packets_dropped INTEGER,
			sim_seconds REAL, ts TEXT)`, telemetry.NetMetricsTableName),
	}
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func stateArgs(r telemetry.NodeStateRow) []any {
	return []any{
		r.RunID, r.NodeID, r.Row, r.Col,
		r.ActualTempC, r.ReportedC, r.HeatLevel,
		r.OnFire, r.BurnedOut, r.AttackMode,
		r.IsAttacker, r.HistoryLen, r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func covertArgs(r telemetry.CovertEventRow) []any {
	return []any{
		r.RunID, r.NodeID, r.Direction, r.Kind,
		r.Bit, r.DecodedBit, r.GapS,
		r.Payload, r.Command, r.Accepted,
		r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func fireArgs(r telemetry.FireSampleRow) []any {
	return []any{
		r.RunID, r.NodeID, r.HeatLevel, r.TempC,
		r.OnFire, r.NeighborsBurning, r.Ignited,
		r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func packetArgs(r telemetry.PacketRow) []any {
	return []any{
		r.RunID, r.Src, r.Dst, r.Port,
		r.Kind, r.Bytes, r.Dropped, r.DelayMs,
		r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func attackArgs(r telemetry.AttackEventRow) []any {
	return []any{
		r.RunID, r.NodeID, r.Event, r.FromMode,
		r.ToMode, r.Detail, r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func metricsArgs(r telemetry.NetworkMetricsRow) []any {
	return []any{
		r.RunID, r.NodeID, r.RSSIdBm, r.SNRdB,
		r.PacketsSent, r.PacketsDropped,
		r.SimSeconds, sqliteTime(r.Timestamp),
	}
}

func insertSQL(table string, cols int) string {
	q := "INSERT INTO " + table + " VALUES (?"
	for i := 1; i < cols; i++ {
		q += ", ?"
	}
	return q + ")"
}

func insertBatch(db *sql.DB, query string, args [][]any) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, a := range args {
		if _, err := stmt.Exec(a...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// WriteState inserts a single node state row.
func (w *SQLiteWriter) WriteState(row telemetry.NodeStateRow) error {
	return w.WriteStates([]telemetry.NodeStateRow{row})
}

// WriteStates inserts node state rows in one transaction.
func (w *SQLiteWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = stateArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.NodeStateTableName, len(args[0])), args)
}

// WriteCovertEvent inserts a single covert event row.
func (w *SQLiteWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	return w.WriteCovertEvents([]telemetry.CovertEventRow{row})
}

// WriteCovertEvents inserts covert event rows in one transaction.
func (w *SQLiteWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = covertArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.CovertEventTableName, len(args[0])), args)
}

// WriteFireSample inserts a single fire-dynamics sample.
func (w *SQLiteWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	return w.WriteFireSamples([]telemetry.FireSampleRow{row})
}

// WriteFireSamples inserts fire-dynamics samples in one transaction.
func (w *SQLiteWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = fireArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.FireSampleTableName, len(args[0])), args)
}

// WritePacket inserts a single packet record.
func (w *SQLiteWriter) WritePacket(row telemetry.PacketRow) error {
	return w.WritePackets([]telemetry.PacketRow{row})
}

// WritePackets inserts packet records in one transaction.
func (w *SQLiteWriter) WritePackets(rows []telemetry.PacketRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = packetArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.PacketTableName, len(args[0])), args)
}

// WriteAttackEvent inserts a single attack lifecycle event.
func (w *SQLiteWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	return w.WriteAttackEvents([]telemetry.AttackEventRow{row})
}

// WriteAttackEvents inserts attack lifecycle events in one transaction.
func (w *SQLiteWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = attackArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.AttackEventTableName, len(args[0])), args)
}

// WriteNetworkMetrics inserts a single link-quality row.
func (w *SQLiteWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	return w.WriteNetworkMetricsBatch([]telemetry.NetworkMetricsRow{row})
}

// WriteNetworkMetricsBatch inserts link-quality rows in one transaction.
func (w *SQLiteWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = metricsArgs(r)
	}
	return insertBatch(w.db, insertSQL(telemetry.NetMetricsTableName, len(args[0])), args)
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
