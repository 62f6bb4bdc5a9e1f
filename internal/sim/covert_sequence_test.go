package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firec2-sim/internal/config"
	"firec2-sim/internal/telemetry"
)

// patternCfg pins the covert-channel scenario: two implants cycling the
// pattern 1011, tight beacon jitter, no fire, no packet loss, nothing
// else on the C2 schedule inside the horizon. With base 2.5s, delta
// 0.35s and jitter 0.1s the eighth beacon always lands before 21s and
// the ninth always after, for any jitter draws.
func patternCfg(seed int64) *config.Config {
	cfg := config.Default()
	cfg.Seed = seed
	cfg.Grid = config.GridConfig{Width: 3, Height: 3, SpacingM: 10}
	cfg.Fire.OriginNode = 4
	cfg.Fire.StartS = 1000
	cfg.Covert.BitPattern = "1011"
	cfg.Covert.BaseIntervalS = 2.5
	cfg.Covert.DelayDeltaS = 0.35
	cfg.Covert.JitterS = 0.1
	cfg.Covert.ExfilPeriodS = 600
	cfg.Covert.MinExfilPeriodS = 2
	cfg.Covert.DetectThresholdC = 0
	cfg.Covert.ActivationAfterS = 0
	cfg.Attack.Nodes = []int{1, 3}
	cfg.Attack.CommandStartS = 300
	cfg.Network.DropProbability = 0
	cfg.Network.LinkDelayMs = 1
	cfg.Network.JitterMinMs = 0
	cfg.Network.JitterMaxMs = 0.5
	cfg.Run.StopAfterS = 21
	cfg.Run.TickS = 1
	cfg.Run.StateSampleEvery = 1
	cfg.Run.MetricsSampleEvery = 5
	return &cfg
}

func TestCovertBeaconSequenceSeed42(t *testing.T) {
	s, w, sum := runSim(t, patternCfg(42))

	valueBits := []int{1, 0, 1, 1, 1, 0, 1, 1}
	timingBits := []int{1, 0, 1, 1, 1, 0, 1}

	for _, id := range []int{1, 3} {
		rows := w.beaconsFor(id)
		require.Len(t, rows, 8, "node %d beacons in 21s", id)

		for i, r := range rows {
			assert.Equal(t, valueBits[i], r.Bit, "node %d beacon %d value bit", id, i)
		}

		// The first arrival anchors the clock and decodes nothing.
		assert.Zero(t, rows[0].GapS)
		assert.Equal(t, -1, rows[0].DecodedBit)

		for i, r := range rows[1:] {
			assert.Greater(t, r.GapS, 2.3, "node %d gap %d", id, i)
			assert.Less(t, r.GapS, 3.05, "node %d gap %d", id, i)
			assert.NotEqual(t, 0.0, r.GapS)
			assert.NotEqual(t, 2.5, r.GapS, "gap must never collapse to the base interval")
			assert.Equal(t, timingBits[i], r.DecodedBit, "node %d gap %d decoded bit", id, i)
		}

		assert.Equal(t, timingBits, s.ctrl.DecodedBits(id))
	}

	// Nothing else rides the channel inside the horizon.
	assert.Equal(t, 16, sum.Beacons)
	assert.Zero(t, sum.Exfils)
	assert.Zero(t, sum.Commands)
	assert.Zero(t, sum.Malformed)
	assert.Zero(t, sum.PacketsDropped)
	for _, r := range w.coverts {
		assert.Contains(t, []int{1, 3}, r.NodeID, "benign nodes must stay silent on the C2 port")
	}

	// One tick per second, one history sample per tick, spoofing or not.
	assert.Equal(t, 21, sum.Ticks)
	last := w.states[len(w.states)-9:]
	for _, r := range last {
		assert.Equal(t, 21, r.HistoryLen, "node %d", r.NodeID)
	}
}

func TestCovertBeaconSequenceReproducible(t *testing.T) {
	_, first, _ := runSim(t, patternCfg(42))
	_, second, _ := runSim(t, patternCfg(42))

	require.Equal(t, len(first.coverts), len(second.coverts))
	for i := range first.coverts {
		a, b := first.coverts[i], second.coverts[i]
		a.RunID, b.RunID = "", ""
		assert.Equal(t, a, b, "covert row %d", i)
	}

	_, other, _ := runSim(t, patternCfg(43))
	gaps := func(w *mockRunWriter) []float64 {
		var out []float64
		for _, r := range w.coverts {
			if r.Kind == telemetry.KindBeacon && r.GapS > 0 {
				out = append(out, r.GapS)
			}
		}
		return out
	}
	assert.NotEqual(t, gaps(first), gaps(other), "seed 43 must draw different beacon jitter")
}
