// ColorStdoutWriter prints human-friendly, colorized run output to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"firec2-sim/internal/config"
	"firec2-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

func modeColor(mode string) string {
	switch mode {
	case "active":
		return colorRed
	case "paused":
		return colorYellow
	default:
		return colorGray
	}
}

func stamp(t time.Time) string {
	return fmt.Sprintf("%s[%s]%s", colorGray, t.Format(time.RFC3339), colorReset)
}

// covertLine formats one covert-channel row; shared with the TUI log.
func covertLine(row telemetry.CovertEventRow) string {
	dirColor := colorCyan
	if row.Direction == telemetry.DirectionDownlink {
		dirColor = colorMagenta
	}
	line := fmt.Sprintf("%s %sCOVERT%s %s%s %s%s %snode=%d%s",
		stamp(row.Timestamp),
		dirColor, colorReset,
		dirColor, row.Direction, row.Kind, colorReset,
		colorWhite(), row.NodeID, colorReset)
	switch row.Kind {
	case telemetry.KindBeacon:
		line += fmt.Sprintf(" %sbit=%d%s", colorGreen, row.Bit, colorReset)
		if row.GapS > 0 {
			line += fmt.Sprintf(" %sgap=%.3fs decoded=%d%s", colorYellow, row.GapS, row.DecodedBit, colorReset)
		}
	case telemetry.KindExfil:
		line += fmt.Sprintf(" %sbytes=%d%s", colorBlue, row.Payload, colorReset)
	case telemetry.KindCommand:
		okColor := colorGreen
		if !row.Accepted {
			okColor = colorRed
		}
		line += fmt.Sprintf(" %scmd=%s%s %saccepted=%t%s",
			colorMagenta, row.Command, colorReset, okColor, row.Accepted, colorReset)
	}
	return line
}

// attackLine formats one backdoor lifecycle row; shared with the TUI log.
func attackLine(row telemetry.AttackEventRow) string {
	line := fmt.Sprintf("%s %sATTACK%s %snode=%d%s %s%s%s",
		stamp(row.Timestamp),
		colorRed, colorReset,
		colorWhite(), row.NodeID, colorReset,
		colorRed, row.Event, colorReset)
	if row.FromMode != "" || row.ToMode != "" {
		line += fmt.Sprintf(" %s%s->%s%s", colorYellow, row.FromMode, row.ToMode, colorReset)
	}
	if row.Detail != "" {
		line += fmt.Sprintf(" %s%s%s", colorGray, row.Detail, colorReset)
	}
	return line
}

// fireLine formats one fire-dynamics row; shared with the TUI log.
func fireLine(row telemetry.FireSampleRow) string {
	tag := colorYellow + "FIRE" + colorReset
	if row.Ignited {
		tag = colorRed + "IGNITION" + colorReset
	}
	return fmt.Sprintf("%s %s %snode=%d%s %sheat=%.2f%s %stemp=%.1fC%s %sburning_nearby=%d%s",
		stamp(row.Timestamp), tag,
		colorWhite(), row.NodeID, colorReset,
		colorYellow, row.HeatLevel, colorReset,
		colorMagenta, row.TempC, colorReset,
		colorRed, row.NeighborsBurning, colorReset)
}

// ColorStdoutWriter prints run rows using ANSI colors. Delivered
// packets and per-node state samples are summarized, not streamed.
type ColorStdoutWriter struct {
	cfg  *config.Config
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Run Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Seed:\t%d\n", w.cfg.Seed)
	fmt.Fprintf(tw, "Grid:\t%dx%d (%.1fm spacing)\n", w.cfg.Grid.Width, w.cfg.Grid.Height, w.cfg.Grid.SpacingM)
	fmt.Fprintf(tw, "Fire Origin:\tnode %d at %.1fs\n", w.cfg.Fire.OriginNode, w.cfg.Fire.StartS)
	fmt.Fprintf(tw, "Compromised Nodes:\t%s\n", joinInts(w.cfg.Attack.Nodes))
	fmt.Fprintf(tw, "Bit Pattern:\t%s\n", w.cfg.Covert.BitPattern)
	fmt.Fprintf(tw, "Beacon Timing:\tbase=%.2fs delta=%.2fs jitter=%.2fs\n",
		w.cfg.Covert.BaseIntervalS, w.cfg.Covert.DelayDeltaS, w.cfg.Covert.JitterS)
	fmt.Fprintf(tw, "Alarm Threshold:\t%.1fC (cooldown %.1fs)\n", w.cfg.Alarm.ThresholdC, w.cfg.Alarm.CooldownS)
	fmt.Fprintf(tw, "Packet Loss:\t%.2f\n", w.cfg.Network.DropProbability)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// WriteState outputs a single node state row in colorized format.
func (w *ColorStdoutWriter) WriteState(row telemetry.NodeStateRow) error {
	w.once.Do(w.printOverview)

	mColor := modeColor(row.AttackMode)
	line := fmt.Sprintf("%s %sSTATE%s %snode=%d(%d,%d)%s %sactual=%.1fC%s %sreported=%.1fC%s %sheat=%.2f%s %smode=%s%s",
		stamp(row.Timestamp),
		colorBlue, colorReset,
		colorWhite(), row.NodeID, row.Row, row.Col, colorReset,
		colorGreen, row.ActualTempC, colorReset,
		colorCyan, row.ReportedC, colorReset,
		colorYellow, row.HeatLevel, colorReset,
		mColor, row.AttackMode, colorReset)
	if row.OnFire {
		line += fmt.Sprintf(" %sON FIRE%s", colorRed, colorReset)
	}
	if row.BurnedOut {
		line += fmt.Sprintf(" %sburned out%s", colorGray, colorReset)
	}
	fmt.Fprintln(w.out, line)
	return nil
}

// WriteStates outputs multiple node state rows.
func (w *ColorStdoutWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, r := range rows {
		_ = w.WriteState(r)
	}
	return nil
}

// WriteCovertEvent prints a covert-channel event to STDOUT.
func (w *ColorStdoutWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out, covertLine(row))
	return nil
}

// WriteCovertEvents prints multiple covert-channel events.
func (w *ColorStdoutWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	for _, r := range rows {
		_ = w.WriteCovertEvent(r)
	}
	return nil
}

// WriteFireSample prints a fire-dynamics sample to STDOUT. Only
// ignitions are streamed; steady burning is visible in state rows.
func (w *ColorStdoutWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	w.once.Do(w.printOverview)
	if !row.Ignited {
		return nil
	}
	fmt.Fprintln(w.out, fireLine(row))
	return nil
}

// WriteFireSamples prints multiple fire-dynamics samples.
func (w *ColorStdoutWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	for _, r := range rows {
		_ = w.WriteFireSample(r)
	}
	return nil
}

// WritePacket prints dropped packets to STDOUT; deliveries are silent.
func (w *ColorStdoutWriter) WritePacket(row telemetry.PacketRow) error {
	w.once.Do(w.printOverview)
	if !row.Dropped {
		return nil
	}
	fmt.Fprintf(w.out, "%s %sDROP%s %ssrc=%d dst=%d port=%d%s %s%s %dB%s\n",
		stamp(row.Timestamp),
		colorRed, colorReset,
		colorWhite(), row.Src, row.Dst, row.Port, colorReset,
		colorGray, row.Kind, row.Bytes, colorReset)
	return nil
}

// WritePackets prints multiple packet rows.
func (w *ColorStdoutWriter) WritePackets(rows []telemetry.PacketRow) error {
	for _, r := range rows {
		_ = w.WritePacket(r)
	}
	return nil
}

// WriteAttackEvent prints a backdoor lifecycle event to STDOUT.
func (w *ColorStdoutWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out, attackLine(row))
	return nil
}

// WriteAttackEvents prints multiple backdoor lifecycle events.
func (w *ColorStdoutWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	for _, r := range rows {
		_ = w.WriteAttackEvent(r)
	}
	return nil
}

// WriteNetworkMetrics prints one link-quality sample to STDOUT.
func (w *ColorStdoutWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s %sNET%s %snode=%d%s %srssi=%.1fdBm%s %ssnr=%.1fdB%s %ssent=%d dropped=%d%s\n",
		stamp(row.Timestamp),
		colorCyan, colorReset,
		colorWhite(), row.NodeID, colorReset,
		colorGreen, row.RSSIdBm, colorReset,
		colorYellow, row.SNRdB, colorReset,
		colorGray, row.PacketsSent, row.PacketsDropped, colorReset)
	return nil
}

// WriteNetworkMetricsBatch prints multiple link-quality samples.
func (w *ColorStdoutWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	for _, r := range rows {
		_ = w.WriteNetworkMetrics(r)
	}
	return nil
}
