package c2

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firec2-sim/internal/covert"
	"firec2-sim/internal/logging"
	"firec2-sim/internal/netsim"
	"firec2-sim/internal/node"
	"firec2-sim/internal/sched"
	"firec2-sim/internal/telemetry"
)

func testConfig() Config {
	return Config{
		Timing: covert.Params{
			BaseInterval: 2500 * time.Millisecond,
			DelayDelta:   350 * time.Millisecond,
			Jitter:       150 * time.Millisecond,
		},
		ExfilWindow: 20,
		Interval:    15 * time.Second,
		CmdJitter:   2 * time.Second,
		StartAt:     35 * time.Second,
	}
}

type harness struct {
	q    *sched.Queue
	net  *netsim.Network
	ctrl *Controller
	rand *rand.Rand
}

func newHarness(t *testing.T, seed int64) *harness {
	t.Helper()
	q := sched.NewQueue(sched.NewClock())
	r := rand.New(rand.NewSource(seed))
	grid := telemetry.Grid{Width: 8, Height: 10, SpacingM: 12}
	n := netsim.New(q, grid, netsim.Params{LinkDelay: 2 * time.Millisecond}, r)
	ctrl := New(logging.NewWriter(io.Discard, false), q, n, testConfig(), r)
	return &harness{q: q, net: n, ctrl: ctrl, rand: r}
}

// addActiveAttacker registers and triggers an attacker whose exfil
// schedule stays beyond the test horizons, so beacon assertions see
// pure timing-channel traffic.
func (h *harness) addActiveAttacker(t *testing.T, id int, pattern string) *node.Agent {
	t.Helper()
	return h.addActiveAttackerPeriod(t, id, pattern, 45*time.Second)
}

func (h *harness) addActiveAttackerPeriod(t *testing.T, id int, pattern string, exfilPeriod time.Duration) *node.Agent {
	t.Helper()
	a, err := node.NewAttacker(id, pattern, exfilPeriod, time.Second)
	require.NoError(t, err)
	h.ctrl.Register(a)
	a.Tick(h.q.Elapsed(), 80, node.Trigger{After: 0, ThresholdC: 55}, h.rand)
	require.True(t, a.Active())
	h.ctrl.Activate(id)
	return a
}

func (h *harness) run(t *testing.T, until time.Duration) {
	t.Helper()
	require.NoError(t, h.q.Run(context.Background(), until, 0))
}

func cycle(pattern string, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(pattern[i%len(pattern)] - '0')
	}
	return out
}

func TestController_BeaconTimingDecodesPattern(t *testing.T) {
	h := newHarness(t, 42)
	h.addActiveAttacker(t, 26, "1011")
	h.run(t, 40*time.Second)

	bits := h.ctrl.DecodedBits(26)
	require.GreaterOrEqual(t, len(bits), 8, "expected at least 8 decoded bits in 40s")
	assert.Equal(t, cycle("1011", 8), bits[:8])

	c := h.ctrl.Counters()
	assert.Equal(t, len(bits)+1, c.Beacons, "n decoded bits need n+1 beacon arrivals")
	assert.Zero(t, c.Malformed)
}

func TestController_CursorsStayPerNode(t *testing.T) {
	h := newHarness(t, 7)
	h.addActiveAttacker(t, 26, "1011")
	h.addActiveAttacker(t, 45, "0011")
	h.run(t, 40*time.Second)

	a := h.ctrl.DecodedBits(26)
	b := h.ctrl.DecodedBits(45)
	require.GreaterOrEqual(t, len(a), 8)
	require.GreaterOrEqual(t, len(b), 8)
	assert.Equal(t, cycle("1011", 8), a[:8], "node 26 must walk its own pattern")
	assert.Equal(t, cycle("0011", 8), b[:8], "node 45 must walk its own pattern")
}

func TestController_ExfilCarriesEmbeddedWindow(t *testing.T) {
	h := newHarness(t, 3)

	var exfils []telemetry.CovertEventRow
	h.ctrl.SetSinks(func(row telemetry.CovertEventRow) {
		if row.Kind == telemetry.KindExfil {
			exfils = append(exfils, row)
		}
	}, nil)

	a := h.addActiveAttackerPeriod(t, 34, "10110011", 6*time.Second)
	// Feed some history before the first exfil window is cut.
	for tick := 1; tick <= 5; tick++ {
		h.q.Schedule(time.Duration(tick)*time.Second, func() {
			a.Tick(h.q.Elapsed(), 80, node.Trigger{After: 0, ThresholdC: 55}, h.rand)
		})
	}
	h.run(t, 30*time.Second)

	require.NotEmpty(t, exfils, "no exfil arrived in 30s")
	first := exfils[0]
	assert.Equal(t, 34, first.NodeID)
	assert.Equal(t, telemetry.DirectionUplink, first.Direction)
	assert.Equal(t, covert.UplinkPacketSize, first.Payload)
	assert.GreaterOrEqual(t, first.SimSeconds, 1.0)
}

func TestController_PauseHaltsSendsUntilResume(t *testing.T) {
	h := newHarness(t, 11)
	a := h.addActiveAttacker(t, 26, "1011")

	h.q.Schedule(10*time.Second, func() { h.ctrl.Inject(26, covert.CmdGoDormant) })
	h.run(t, 20*time.Second)

	require.Equal(t, node.ModePaused, a.Mode())
	paused := h.ctrl.Counters().Beacons
	require.Greater(t, paused, 0)

	// Silence while paused.
	h.run(t, 40*time.Second)
	assert.Equal(t, paused, h.ctrl.Counters().Beacons, "beacons kept flowing while paused")

	// Resume picks the schedule back up.
	h.q.Schedule(41*time.Second, func() { h.ctrl.Inject(26, covert.CmdResume) })
	h.run(t, 60*time.Second)
	assert.Equal(t, node.ModeActive, a.Mode())
	assert.Greater(t, h.ctrl.Counters().Beacons, paused, "no beacons after resume")
}

func TestController_RejectedCommandLeavesStateAlone(t *testing.T) {
	h := newHarness(t, 13)

	var attacks []telemetry.AttackEventRow
	h.ctrl.SetSinks(nil, func(row telemetry.AttackEventRow) { attacks = append(attacks, row) })

	a := h.addActiveAttacker(t, 26, "1011")
	h.q.Schedule(5*time.Second, func() { h.ctrl.Inject(26, covert.CmdResume) }) // resume while active
	h.run(t, 10*time.Second)

	assert.Equal(t, node.ModeActive, a.Mode())
	c := h.ctrl.Counters()
	assert.Equal(t, 1, c.Rejected)
	assert.Equal(t, 0, c.Accepted)

	require.NotEmpty(t, attacks)
	last := attacks[len(attacks)-1]
	assert.Equal(t, telemetry.AttackEventRejected, last.Event)
	assert.Equal(t, "active", last.FromMode)
	assert.Equal(t, "active", last.ToMode)
}

func TestController_MalformedUplinkIsCountedAndDropped(t *testing.T) {
	h := newHarness(t, 17)
	h.addActiveAttacker(t, 26, "1011")

	h.q.Schedule(time.Second, func() {
		h.net.Send(26, netsim.AddrController, netsim.PortC2Uplink, telemetry.KindBeacon, []byte("garbage"))
	})
	h.run(t, 5*time.Second)

	assert.Equal(t, 1, h.ctrl.Counters().Malformed)
	// The run keeps going: beacons still arrive afterwards.
	assert.Greater(t, h.ctrl.Counters().Beacons, 0)
}

func TestController_DownlinkForUnknownNodeIsCounted(t *testing.T) {
	h := newHarness(t, 19)
	h.ctrl.Inject(77, covert.CmdResume)
	h.run(t, time.Second)
	assert.Equal(t, 1, h.ctrl.Counters().Malformed)
}

func TestController_CommandLoopUsesPolicy(t *testing.T) {
	h := newHarness(t, 23)
	a := h.addActiveAttacker(t, 26, "1011")

	h.ctrl.SetPolicy(NewScriptedPolicy([]Step{
		{At: 0, Node: 26, Command: covert.CmdGoDormant},
		{At: 0, Node: 26, Command: covert.CmdResume},
	}))
	h.ctrl.cfg.StartAt = 2 * time.Second
	h.ctrl.cfg.Interval = 3 * time.Second
	h.ctrl.Start()
	h.run(t, 20*time.Second)

	assert.Equal(t, node.ModeActive, a.Mode(), "pause then resume should land back on active")
	c := h.ctrl.Counters()
	assert.Equal(t, 2, c.Commands)
	assert.Equal(t, 2, c.Accepted)
}

func TestScriptedPolicy_IssuesInTimeOrder(t *testing.T) {
	p := NewScriptedPolicy([]Step{
		{At: 30 * time.Second, Node: 2, Command: covert.CmdResume},
		{At: 10 * time.Second, Node: 1, Command: covert.CmdGoDormant},
	})

	_, _, ok := p.Next(5*time.Second, nil, nil)
	assert.False(t, ok, "nothing due yet")

	target, cmd, ok := p.Next(12*time.Second, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 1, target)
	assert.Equal(t, covert.CmdGoDormant, cmd)

	_, _, ok = p.Next(12*time.Second, nil, nil)
	assert.False(t, ok, "second step not due yet")

	target, _, ok = p.Next(31*time.Second, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 2, target)
	assert.Equal(t, 0, p.Remaining())
}

func TestRandomPolicy_SkipsWhenNothingTriggered(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	_, _, ok := RandomPolicy{}.Next(0, nil, r)
	assert.False(t, ok)

	target, cmd, ok := RandomPolicy{}.Next(0, []int{26}, r)
	require.True(t, ok)
	assert.Equal(t, 26, target)
	assert.True(t, cmd.Valid())
}
