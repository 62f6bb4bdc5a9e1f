package sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"firec2-sim/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer uses,
// narrow enough for tests to capture tables without a live server.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter ingests all streams into GreptimeDB, one table per
// stream with run_id and node_id as tags. The server creates tables on
// first ingest, so no DDL is issued here.
type GreptimeDBWriter struct {
	client greptimeClient

	stateTable   string
	covertTable  string
	fireTable    string
	packetTable  string
	attackTable  string
	metricsTable string
}

// NewGreptimeDBWriter connects to a GreptimeDB gRPC endpoint, given as
// host or host:port (port defaults to 4001).
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		host, portStr = endpoint, "4001"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
	}

	client, err := greptime.NewClient(greptime.NewConfig(host).
		WithPort(port).
		WithDatabase(database))
	if err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client:       client,
		stateTable:   telemetry.NodeStateTableName,
		covertTable:  telemetry.CovertEventTableName,
		fireTable:    telemetry.FireSampleTableName,
		packetTable:  telemetry.PacketTableName,
		attackTable:  telemetry.AttackEventTableName,
		metricsTable: telemetry.NetMetricsTableName,
	}, nil
}

// WriteState ingests a single node state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.NodeStateRow) error {
	return w.WriteStates([]telemetry.NodeStateRow{row})
}

// WriteStates ingests node state rows as one table write.
func (w *GreptimeDBWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("node_id", types.INT64),
		tbl.AddFieldColumn("row", types.INT64),
		tbl.AddFieldColumn("col", types.INT64),
		tbl.AddFieldColumn("actual_temp_c", types.FLOAT64),
		tbl.AddFieldColumn("reported_temp_c", types.FLOAT64),
		tbl.AddFieldColumn("heat_level", types.FLOAT64),
		tbl.AddFieldColumn("on_fire", types.BOOLEAN),
		tbl.AddFieldColumn("burned_out", types.BOOLEAN),
		tbl.AddFieldColumn("attack_mode", types.STRING),
		tbl.AddFieldColumn("is_attacker", types.BOOLEAN),
		tbl.AddFieldColumn("history_len", types.INT64),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.NodeID), int64(r.Row), int64(r.Col),
			r.ActualTempC, r.ReportedC, r.HeatLevel,
			r.OnFire, r.BurnedOut, r.AttackMode, r.IsAttacker,
			int64(r.HistoryLen), r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteCovertEvent ingests a single covert event row.
func (w *GreptimeDBWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	return w.WriteCovertEvents([]telemetry.CovertEventRow{row})
}

// WriteCovertEvents ingests covert event rows as one table write.
func (w *GreptimeDBWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.covertTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("node_id", types.INT64),
		tbl.AddFieldColumn("direction", types.STRING),
		tbl.AddFieldColumn("kind", types.STRING),
		tbl.AddFieldColumn("bit", types.INT64),
		tbl.AddFieldColumn("decoded_bit", types.INT64),
		tbl.AddFieldColumn("gap_s", types.FLOAT64),
		tbl.AddFieldColumn("payload_bytes", types.INT64),
		tbl.AddFieldColumn("command", types.STRING),
		tbl.AddFieldColumn("accepted", types.BOOLEAN),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.NodeID), r.Direction, r.Kind,
			int64(r.Bit), int64(r.DecodedBit), r.GapS, int64(r.Payload),
			r.Command, r.Accepted, r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteFireSample ingests a single fire-dynamics sample.
func (w *GreptimeDBWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	return w.WriteFireSamples([]telemetry.FireSampleRow{row})
}

// WriteFireSamples ingests fire-dynamics samples as one table write.
func (w *GreptimeDBWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.fireTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("node_id", types.INT64),
		tbl.AddFieldColumn("heat_level", types.FLOAT64),
		tbl.AddFieldColumn("temp_c", types.FLOAT64),
		tbl.AddFieldColumn("on_fire", types.BOOLEAN),
		tbl.AddFieldColumn("neighbors_burning", types.INT64),
		tbl.AddFieldColumn("ignited", types.BOOLEAN),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.NodeID), r.HeatLevel, r.TempC,
			r.OnFire, int64(r.NeighborsBurning), r.Ignited,
			r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WritePacket ingests a single packet record.
func (w *GreptimeDBWriter) WritePacket(row telemetry.PacketRow) error {
	return w.WritePackets([]telemetry.PacketRow{row})
}

// WritePackets ingests packet records as one table write.
func (w *GreptimeDBWriter) WritePackets(rows []telemetry.PacketRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.packetTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("src", types.INT64),
		tbl.AddFieldColumn("dst", types.INT64),
		tbl.AddFieldColumn("port", types.INT64),
		tbl.AddFieldColumn("kind", types.STRING),
		tbl.AddFieldColumn("bytes", types.INT64),
		tbl.AddFieldColumn("dropped", types.BOOLEAN),
		tbl.AddFieldColumn("delay_ms", types.FLOAT64),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.Src), int64(r.Dst), int64(r.Port),
			r.Kind, int64(r.Bytes), r.Dropped, r.DelayMs,
			r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteAttackEvent ingests a single attack lifecycle event.
func (w *GreptimeDBWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	return w.WriteAttackEvents([]telemetry.AttackEventRow{row})
}

// WriteAttackEvents ingests attack lifecycle events as one table write.
func (w *GreptimeDBWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.attackTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("node_id", types.INT64),
		tbl.AddFieldColumn("event", types.STRING),
		tbl.AddFieldColumn("from_mode", types.STRING),
		tbl.AddFieldColumn("to_mode", types.STRING),
		tbl.AddFieldColumn("detail", types.STRING),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.NodeID), r.Event, r.FromMode, r.ToMode,
			r.Detail, r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteNetworkMetrics ingests a single link-quality row.
func (w *GreptimeDBWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	return w.WriteNetworkMetricsBatch([]telemetry.NetworkMetricsRow{row})
}

// WriteNetworkMetricsBatch ingests link-quality rows as one table write.
func (w *GreptimeDBWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.metricsTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("node_id", types.INT64),
		tbl.AddFieldColumn("rssi_dbm", types.FLOAT64),
		tbl.AddFieldColumn("snr_db", types.FLOAT64),
		tbl.AddFieldColumn("packets_sent", types.INT64),
		tbl.AddFieldColumn("packets_dropped", types.INT64),
		tbl.AddFieldColumn("sim_seconds", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, int64(r.NodeID), r.RSSIdBm, r.SNRdB,
			int64(r.PacketsSent), int64(r.PacketsDropped),
			r.SimSeconds, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}
