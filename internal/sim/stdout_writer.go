// Writer implementation printing rows to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"firec2-sim/internal/telemetry"
)

// StdoutWriter prints rows as JSON lines. In quiet mode only covert and
// attack events are printed, which keeps long runs readable.
type StdoutWriter struct {
	out   io.Writer
	quiet bool
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(quiet bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, quiet: quiet}
}

func (w *StdoutWriter) println(v any) error {
	data, _ := json.Marshal(v)
	_, err := fmt.Fprintln(w.out, string(data))
	return err
}

// WriteState outputs a node state row unless quiet.
func (w *StdoutWriter) WriteState(row telemetry.NodeStateRow) error {
	if w.quiet {
		return nil
	}
	return w.println(row)
}

// WriteStates outputs multiple node state rows.
func (w *StdoutWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, r := range rows {
		if err := w.WriteState(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCovertEvent outputs a covert event row.
func (w *StdoutWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	return w.println(row)
}

// WriteCovertEvents outputs multiple covert event rows.
func (w *StdoutWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	for _, r := range rows {
		if err := w.WriteCovertEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteFireSample outputs a fire-dynamics sample unless quiet.
func (w *StdoutWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	if w.quiet {
		return nil
	}
	return w.println(row)
}

// WriteFireSamples outputs multiple fire-dynamics samples.
func (w *StdoutWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	for _, r := range rows {
		if err := w.WriteFireSample(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePacket outputs a packet record unless quiet.
func (w *StdoutWriter) WritePacket(row telemetry.PacketRow) error {
	if w.quiet {
		return nil
	}
	return w.println(row)
}

// WriteAttackEvent outputs an attack lifecycle event.
func (w *StdoutWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	return w.println(row)
}

// WriteNetworkMetrics outputs a link-quality row unless quiet.
func (w *StdoutWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	if w.quiet {
		return nil
	}
	return w.println(row)
}
