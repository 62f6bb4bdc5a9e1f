package sim

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firec2-sim/internal/config"
	"firec2-sim/internal/covert"
	"firec2-sim/internal/logging"
	"firec2-sim/internal/telemetry"
)

// mockRunWriter collects rows for validation. It implements only the
// single-row methods, so the per-row fanout paths are exercised.
type mockRunWriter struct {
	states  []telemetry.NodeStateRow
	coverts []telemetry.CovertEventRow
	fires   []telemetry.FireSampleRow
	packets []telemetry.PacketRow
	attacks []telemetry.AttackEventRow
	metrics []telemetry.NetworkMetricsRow
}

func (w *mockRunWriter) WriteState(r telemetry.NodeStateRow) error {
	w.states = append(w.states, r)
	return nil
}

func (w *mockRunWriter) WriteCovertEvent(r telemetry.CovertEventRow) error {
	w.coverts = append(w.coverts, r)
	return nil
}

func (w *mockRunWriter) WriteFireSample(r telemetry.FireSampleRow) error {
	w.fires = append(w.fires, r)
	return nil
}

func (w *mockRunWriter) WritePacket(r telemetry.PacketRow) error {
	w.packets = append(w.packets, r)
	return nil
}

func (w *mockRunWriter) WriteAttackEvent(r telemetry.AttackEventRow) error {
	w.attacks = append(w.attacks, r)
	return nil
}

func (w *mockRunWriter) WriteNetworkMetrics(r telemetry.NetworkMetricsRow) error {
	w.metrics = append(w.metrics, r)
	return nil
}

func (w *mockRunWriter) beaconsFor(id int) []telemetry.CovertEventRow {
	var out []telemetry.CovertEventRow
	for _, r := range w.coverts {
		if r.NodeID == id && r.Kind == telemetry.KindBeacon {
			out = append(out, r)
		}
	}
	return out
}

// testCfg is a small grid with one implant next to the origin, sized so
// a run finishes instantly in virtual time.
func testCfg() *config.Config {
	cfg := config.Default()
	cfg.Grid = config.GridConfig{Width: 3, Height: 3, SpacingM: 10}
	cfg.Fire.OriginNode = 4
	cfg.Fire.StartS = 2
	cfg.Attack.Nodes = []int{1}
	cfg.Attack.CommandStartS = 300
	cfg.Covert.DetectThresholdC = 0
	cfg.Covert.ActivationAfterS = 0
	cfg.Covert.ExfilPeriodS = 6
	cfg.Network.DropProbability = 0
	cfg.Run.StopAfterS = 12
	cfg.Run.TickS = 1
	cfg.Run.StateSampleEvery = 1
	cfg.Run.MetricsSampleEvery = 2
	return &cfg
}

func newTestSim(t *testing.T, cfg *config.Config, w RunWriter) *Simulator {
	t.Helper()
	s, err := NewSimulator(logging.NewWriter(io.Discard, false), cfg, w)
	require.NoError(t, err)
	return s
}

func runSim(t *testing.T, cfg *config.Config) (*Simulator, *mockRunWriter, Summary) {
	t.Helper()
	w := &mockRunWriter{}
	s := newTestSim(t, cfg, w)
	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	return s, w, sum
}

func TestSimulatorRunWritesAllStreams(t *testing.T) {
	cfg := testCfg()
	s, w, sum := runSim(t, cfg)

	size := cfg.Grid.Width * cfg.Grid.Height
	ticks := int(cfg.Run.StopAfterS / cfg.Run.TickS)
	assert.Equal(t, ticks, sum.Ticks)
	assert.Len(t, w.states, ticks*size)
	assert.NotEmpty(t, w.fires, "fire starts at 2s, samples expected")
	assert.NotEmpty(t, w.packets)
	assert.NotEmpty(t, w.coverts, "implant activates on the first tick")
	assert.NotEmpty(t, w.attacks)
	assert.Len(t, w.metrics, ticks/cfg.Run.MetricsSampleEvery*size)
	assert.GreaterOrEqual(t, sum.Ignitions, 1)

	for _, r := range w.states {
		assert.Equal(t, s.RunID(), r.RunID)
		assert.False(t, r.Timestamp.IsZero())
	}
	for _, r := range w.coverts {
		assert.Equal(t, s.RunID(), r.RunID)
	}
	for _, r := range w.packets {
		assert.Equal(t, s.RunID(), r.RunID)
	}
}

func TestSimulatorHistoryGrowsEveryTick(t *testing.T) {
	cfg := testCfg()
	_, w, sum := runSim(t, cfg)

	// Every node appends one history sample per tick, spoofing or not.
	last := w.states[len(w.states)-cfg.Grid.Width*cfg.Grid.Height:]
	for _, r := range last {
		assert.Equal(t, sum.Ticks, r.HistoryLen, "node %d", r.NodeID)
	}
}

func TestSimulatorBenignNodesReportTruth(t *testing.T) {
	cfg := testCfg()
	_, w, _ := runSim(t, cfg)

	for _, r := range w.states {
		if r.IsAttacker {
			continue
		}
		assert.Equal(t, r.ActualTempC, r.ReportedC, "node %d at %.1fs", r.NodeID, r.SimSeconds)
		assert.Equal(t, "dormant", r.AttackMode)
	}
}

func TestSimulatorDeterministicAcrossRuns(t *testing.T) {
	first, _, _ := collectRun(t, 42)
	second, _, _ := collectRun(t, 42)
	assert.Equal(t, first, second, "same seed must replay the identical covert sequence")
}

func TestSimulatorSeedChangesTiming(t *testing.T) {
	_, firstGaps, _ := collectRun(t, 42)
	_, secondGaps, _ := collectRun(t, 43)
	assert.NotEqual(t, firstGaps, secondGaps, "different seeds must draw different beacon jitter")
}

// collectRun returns the covert rows (run ID cleared), the beacon gap
// sequence and the summary for one run at the given seed.
func collectRun(t *testing.T, seed int64) ([]telemetry.CovertEventRow, []float64, Summary) {
	t.Helper()
	cfg := testCfg()
	cfg.Seed = seed
	_, w, sum := runSim(t, cfg)

	rows := make([]telemetry.CovertEventRow, len(w.coverts))
	copy(rows, w.coverts)
	var gaps []float64
	for i := range rows {
		rows[i].RunID = ""
		if rows[i].Kind == telemetry.KindBeacon && rows[i].GapS > 0 {
			gaps = append(gaps, rows[i].GapS)
		}
	}
	return rows, gaps, sum
}

func TestSimulatorSpoofingSuppressesCloudAlarm(t *testing.T) {
	base := testCfg()
	base.Grid = config.GridConfig{Width: 1, Height: 1, SpacingM: 10}
	base.Fire.OriginNode = 0
	base.Fire.StartS = 1
	base.Run.StopAfterS = 30

	honest := *base
	honest.Attack.Nodes = nil
	_, _, honestSum := runSim(t, &honest)
	require.GreaterOrEqual(t, honestSum.CloudAlarms, 1, "a truthful burning node must raise the alarm")

	spoofed := *base
	spoofed.Attack.Nodes = []int{0}
	_, w, spoofedSum := runSim(t, &spoofed)
	assert.Zero(t, spoofedSum.CloudAlarms, "the spoofing node must keep the cloud quiet")
	assert.GreaterOrEqual(t, spoofedSum.NodesBurning+spoofedSum.NodesBurnedOut, 1)

	for _, r := range w.states {
		if r.SimSeconds > 2 && r.OnFire {
			assert.Less(t, r.ReportedC, base.Alarm.ThresholdC,
				"spoofed reading at %.1fs", r.SimSeconds)
		}
	}
}

func TestSimulatorInjectCommandValidation(t *testing.T) {
	cfg := testCfg()
	s := newTestSim(t, cfg, &mockRunWriter{})

	assert.Error(t, s.InjectCommand(99, covert.CmdGoDormant))
	assert.Error(t, s.InjectCommand(-1, covert.CmdGoDormant))
	assert.Error(t, s.InjectCommand(1, covert.Command(0xEE)))
	assert.NoError(t, s.InjectCommand(1, covert.CmdGoDormant))
}

func TestSimulatorManualIgnition(t *testing.T) {
	cfg := testCfg()
	cfg.Fire.StartS = 1000 // origin ignition beyond the horizon
	w := &mockRunWriter{}
	s := newTestSim(t, cfg, w)

	require.NoError(t, s.IgniteNode(0))
	require.Error(t, s.IgniteNode(77))

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sum.Ignitions, 1)
	require.NotEmpty(t, w.fires)
	assert.Equal(t, 0, w.fires[0].NodeID)
	assert.True(t, w.fires[0].Ignited)
}

func TestSimulatorPublishesStatusAndSnapshot(t *testing.T) {
	cfg := testCfg()
	s, w, sum := runSim(t, cfg)

	st := s.Status()
	assert.Equal(t, sum.Ticks, st.Ticks)
	assert.Equal(t, sum.Beacons, st.Beacons)
	assert.Equal(t, cfg.Run.StopAfterS, st.SimSeconds)

	snap := s.GridSnapshot()
	require.Len(t, snap, cfg.Grid.Width*cfg.Grid.Height)
	for i, n := range snap {
		assert.Equal(t, i, n.ID)
	}
	assert.True(t, snap[1].IsAttacker)
	assert.Equal(t, "active", snap[1].Mode)

	events := s.Events()
	assert.Len(t, events, len(w.coverts))
}

func TestSimulatorCountersMatchRows(t *testing.T) {
	cfg := testCfg()
	_, w, sum := runSim(t, cfg)

	var beacons, exfils int
	for _, r := range w.coverts {
		switch r.Kind {
		case telemetry.KindBeacon:
			beacons++
		case telemetry.KindExfil:
			exfils++
		}
	}
	assert.Equal(t, beacons, sum.Beacons)
	assert.Equal(t, exfils, sum.Exfils)
	assert.Equal(t, len(w.packets), sum.PacketsSent)

	var dropped int
	for _, r := range w.packets {
		if r.Dropped {
			dropped++
		}
	}
	assert.Equal(t, dropped, sum.PacketsDropped)
}
