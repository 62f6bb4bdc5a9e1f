package sim

import (
	"encoding/json"
	"os"
	"path/filepath"

	"firec2-sim/internal/telemetry"
)

// Stream file names inside a FileWriter output directory.
const (
	NodeStateLogName   = "node_states.jsonl"
	CovertEventLogName = "covert_events.jsonl"
	FireSampleLogName  = "fire_dynamics.jsonl"
	PacketLogName      = "packets.jsonl"
	AttackEventLogName = "attack_events.jsonl"
	NetMetricsLogName  = "network_metrics.jsonl"
)

// FileWriter writes one JSONL file per stream into an output directory.
type FileWriter struct {
	files []*os.File

	stateEnc   *json.Encoder
	covertEnc  *json.Encoder
	fireEnc    *json.Encoder
	packetEnc  *json.Encoder
	attackEnc  *json.Encoder
	metricsEnc *json.Encoder
}

// NewFileWriter creates dir if needed and opens all stream logs,
// truncating any previous run.
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fw := &FileWriter{}
	streams := []struct {
		name string
		enc  **json.Encoder
	}{
		{NodeStateLogName, &fw.stateEnc},
		{CovertEventLogName, &fw.covertEnc},
		{FireSampleLogName, &fw.fireEnc},
		{PacketLogName, &fw.packetEnc},
		{AttackEventLogName, &fw.attackEnc},
		{NetMetricsLogName, &fw.metricsEnc},
	}
	for _, s := range streams {
		f, err := os.Create(filepath.Join(dir, s.name))
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.files = append(fw.files, f)
		*s.enc = json.NewEncoder(f)
	}
	return fw, nil
}

// WriteState logs a single node state row.
func (f *FileWriter) WriteState(row telemetry.NodeStateRow) error {
	return f.stateEnc.Encode(row)
}

// WriteStates logs multiple node state rows.
func (f *FileWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, r := range rows {
		if err := f.WriteState(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCovertEvent logs a single covert event row.
func (f *FileWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	return f.covertEnc.Encode(row)
}

// WriteCovertEvents logs multiple covert event rows.
func (f *FileWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	for _, r := range rows {
		if err := f.WriteCovertEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteFireSample logs a single fire-dynamics sample.
func (f *FileWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	return f.fireEnc.Encode(row)
}

// WriteFireSamples logs multiple fire-dynamics samples.
func (f *FileWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	for _, r := range rows {
		if err := f.WriteFireSample(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePacket logs a single packet record.
func (f *FileWriter) WritePacket(row telemetry.PacketRow) error {
	return f.packetEnc.Encode(row)
}

// WritePackets logs multiple packet records.
func (f *FileWriter) WritePackets(rows []telemetry.PacketRow) error {
	for _, r := range rows {
		if err := f.WritePacket(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAttackEvent logs a single attack lifecycle event.
func (f *FileWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	return f.attackEnc.Encode(row)
}

// WriteAttackEvents logs multiple attack lifecycle events.
func (f *FileWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	for _, r := range rows {
		if err := f.WriteAttackEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteNetworkMetrics logs a single link-quality row.
func (f *FileWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	return f.metricsEnc.Encode(row)
}

// WriteNetworkMetricsBatch logs multiple link-quality rows.
func (f *FileWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	for _, r := range rows {
		if err := f.WriteNetworkMetrics(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range f.files {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
