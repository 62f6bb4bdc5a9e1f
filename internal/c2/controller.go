// Package c2 is the attacker-side command service: it drives per-node
// beacon and exfil uplinks, decodes what arrives, and schedules downlink
// commands back into the grid.
package c2

import (
	"log/slog"
	"math/rand"
	"time"

	"firec2-sim/internal/covert"
	"firec2-sim/internal/netsim"
	"firec2-sim/internal/node"
	"firec2-sim/internal/sched"
	"firec2-sim/internal/telemetry"
)

// Config tunes the controller for one run.
type Config struct {
	Timing      covert.Params
	ExfilWindow int           // history values per exfil packet
	Interval    time.Duration // downlink command cadence
	CmdJitter   time.Duration // uniform noise on the cadence
	StartAt     time.Duration // first downlink command
}

// EventSink receives covert-channel rows.
type EventSink func(telemetry.CovertEventRow)

// AttackSink receives attack lifecycle rows.
type AttackSink func(telemetry.AttackEventRow)

// decodeState is the controller's per-node uplink view. Timing bits ride
// on beacon-to-beacon gaps only, so exfil arrivals are tracked apart and
// the first beacon just anchors the clock.
type decodeState struct {
	beacons    int
	lastBeacon time.Duration
	exfils     int
	lastExfil  time.Duration
	bits       []int
}

// Counters is a snapshot of controller activity.
type Counters struct {
	Beacons   int
	Exfils    int
	Commands  int
	Accepted  int
	Rejected  int
	Malformed int
}

// Controller owns the attacker arena: agents indexed by node ID, one
// covert channel state per agent, and the decode state for the uplink.
type Controller struct {
	log  *slog.Logger
	q    *sched.Queue
	net  *netsim.Network
	rand *rand.Rand
	cfg  Config

	enc covert.Encoder
	dec covert.Decoder

	agents map[int]*node.Agent
	order  []int // attacker IDs ascending

	arrivals map[int]*decodeState
	counters Counters

	policy  Policy
	events  EventSink
	attacks AttackSink
}

// New wires a controller over the fabric. It registers itself as the
// uplink receiver and the grid-wide downlink receiver.
func New(log *slog.Logger, q *sched.Queue, net *netsim.Network, cfg Config, r *rand.Rand) *Controller {
	c := &Controller{
		log:      log,
		q:        q,
		net:      net,
		rand:     r,
		cfg:      cfg,
		enc:      covert.Encoder{P: cfg.Timing},
		dec:      covert.Decoder{P: cfg.Timing},
		agents:   make(map[int]*node.Agent),
		arrivals: make(map[int]*decodeState),
		policy:   RandomPolicy{},
	}
	net.Handle(netsim.PortC2Uplink, c.handleUplink)
	net.Handle(netsim.PortC2Downlink, c.handleDownlink)
	return c
}

// SetPolicy swaps the downlink command policy.
func (c *Controller) SetPolicy(p Policy) {
	if p != nil {
		c.policy = p
	}
}

// SetSinks registers the row sinks.
func (c *Controller) SetSinks(events EventSink, attacks AttackSink) {
	c.events = events
	c.attacks = attacks
}

// Register adds a compromised agent to the arena.
func (c *Controller) Register(a *node.Agent) {
	if _, ok := c.agents[a.ID]; ok {
		return
	}
	c.agents[a.ID] = a
	i := 0
	for ; i < len(c.order) && c.order[i] < a.ID; i++ {
	}
	c.order = append(c.order, 0)
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = a.ID
}

// Agent returns the registered agent for id, nil if unknown.
func (c *Controller) Agent(id int) *node.Agent { return c.agents[id] }

// Counters returns a snapshot of controller activity.
func (c *Controller) Counters() Counters { return c.counters }

// DecodedBits returns the timing bits recovered from a node's beacons.
func (c *Controller) DecodedBits(id int) []int {
	st, ok := c.arrivals[id]
	if !ok {
		return nil
	}
	out := make([]int, len(st.bits))
	copy(out, st.bits)
	return out
}

// Start arms the downlink command loop.
func (c *Controller) Start() {
	c.q.Schedule(c.cfg.StartAt, c.commandLoop)
}

// Activate starts the beacon and exfil schedules for a node that just
// triggered. The first beacon goes out immediately; every later gap
// carries one pattern bit.
func (c *Controller) Activate(id int) {
	a := c.agents[id]
	if a == nil {
		return
	}
	c.log.Info("backdoor activated", "node", id, "temp_c", a.Actual(), "at_s", c.q.Elapsed().Seconds())
	c.beaconTick(id)
	c.q.ScheduleIn(c.exfilNext(a), func() { c.exfilTick(id) })
}

// beaconTick sends one beacon and re-arms itself with the bit-modulated
// delay. The agent is re-read from the arena on every firing, so a mode
// change between events is honored.
func (c *Controller) beaconTick(id int) {
	a := c.agents[id]
	if a == nil {
		return
	}
	if !a.Active() {
		// Paused: stay armed without consuming pattern bits.
		c.q.ScheduleIn(c.cfg.Timing.BaseInterval, func() { c.beaconTick(id) })
		return
	}

	bit := a.Channel().NextBit()
	delay := c.enc.Delay(bit, c.rand)
	temp := c.enc.EmbedLSB(a.Reported(), bit)
	pkt := covert.EncodeUplink(covert.Uplink{
		NodeID:    id,
		Beacon:    true,
		Triggered: true,
		Bit:       bit,
		TempC:     temp,
	}, c.rand)

	c.net.Send(id, netsim.AddrController, netsim.PortC2Uplink, telemetry.KindBeacon, pkt)
	c.q.ScheduleIn(delay, func() { c.beaconTick(id) })
}

// exfilTick sends one history window and re-arms itself on the node's
// current exfil period, so rate commands apply from the next cycle.
func (c *Controller) exfilTick(id int) {
	a := c.agents[id]
	if a == nil {
		return
	}
	if a.Active() {
		headerBit := a.Channel().NextBit()
		vals := a.Window(c.cfg.ExfilWindow)
		enc := make([]float64, len(vals))
		for i, v := range vals {
			enc[i] = c.enc.EmbedLSB(v, a.Channel().NextBit())
		}
		pkt := covert.EncodeUplink(covert.Uplink{
			NodeID:    id,
			Triggered: true,
			Bit:       headerBit,
			TempC:     c.enc.EmbedLSB(a.Reported(), headerBit),
			Values:    enc,
		}, c.rand)
		c.net.Send(id, netsim.AddrController, netsim.PortC2Uplink, telemetry.KindExfil, pkt)
	}
	c.q.ScheduleIn(c.exfilNext(a), func() { c.exfilTick(id) })
}

func (c *Controller) exfilNext(a *node.Agent) time.Duration {
	j := c.cfg.Timing.Jitter
	next := a.ExfilPeriod() + time.Duration((c.rand.Float64()*2-1)*float64(j))
	if next < time.Second {
		next = time.Second
	}
	return next
}

// handleUplink decodes a beacon or exfil arrival: the value-domain bit
// from the embedded temperature and the timing-domain bit from the gap
// since the node's previous arrival.
func (c *Controller) handleUplink(src int, payload []byte, at time.Duration) {
	u, err := covert.DecodeUplink(payload)
	if err != nil {
		c.counters.Malformed++
		c.log.Warn("uplink discarded", "src", src, "bytes", len(payload), "err", err)
		return
	}

	st, ok := c.arrivals[u.NodeID]
	if !ok {
		st = &decodeState{}
		c.arrivals[u.NodeID] = st
	}

	decoded := -1
	gap := time.Duration(0)
	kind := telemetry.KindExfil
	if u.Beacon {
		kind = telemetry.KindBeacon
		if st.beacons > 0 {
			gap = at - st.lastBeacon
			decoded = c.dec.ClassifyGap(gap)
			st.bits = append(st.bits, decoded)
		}
		st.beacons++
		st.lastBeacon = at
		c.counters.Beacons++
	} else {
		if st.exfils > 0 {
			gap = at - st.lastExfil
		}
		st.exfils++
		st.lastExfil = at
		c.counters.Exfils++
	}

	c.emitEvent(telemetry.CovertEventRow{
		NodeID:     u.NodeID,
		Direction:  telemetry.DirectionUplink,
		Kind:       kind,
		Bit:        c.dec.ExtractLSB(u.TempC),
		DecodedBit: decoded,
		GapS:       gap.Seconds(),
		Payload:    len(payload),
		Accepted:   true,
		SimSeconds: at.Seconds(),
		Timestamp:  c.q.Now(),
	})
}

// handleDownlink applies a command at the target node. Accepted and
// rejected commands flow through the same reporting point.
func (c *Controller) handleDownlink(src int, payload []byte, at time.Duration) {
	target, cmd, err := covert.DecodeCommand(payload)
	if err != nil {
		c.counters.Malformed++
		c.log.Warn("downlink discarded", "src", src, "bytes", len(payload), "err", err)
		return
	}

	a := c.agents[target]
	if a == nil {
		c.counters.Malformed++
		c.log.Warn("downlink for unknown node", "node", target, "command", cmd.String())
		return
	}

	from, to, applyErr := a.Apply(cmd)
	accepted := applyErr == nil
	if accepted {
		c.counters.Accepted++
	} else {
		c.counters.Rejected++
	}
	c.log.Info("downlink command",
		"node", target, "command", cmd.String(),
		"from", from.String(), "to", to.String(), "accepted", accepted)

	c.emitEvent(telemetry.CovertEventRow{
		NodeID:     target,
		Direction:  telemetry.DirectionDownlink,
		Kind:       telemetry.KindCommand,
		Bit:        -1,
		DecodedBit: -1,
		Payload:    len(payload),
		Command:    cmd.String(),
		Accepted:   accepted,
		SimSeconds: at.Seconds(),
		Timestamp:  c.q.Now(),
	})

	event := telemetry.AttackEventCommandRx
	detail := cmd.String()
	if !accepted {
		event = telemetry.AttackEventRejected
		detail = applyErr.Error()
	}
	c.emitAttack(telemetry.AttackEventRow{
		NodeID:     target,
		Event:      event,
		FromMode:   from.String(),
		ToMode:     to.String(),
		Detail:     detail,
		SimSeconds: at.Seconds(),
		Timestamp:  c.q.Now(),
	})
}

// commandLoop issues one policy-chosen command and re-arms itself.
func (c *Controller) commandLoop() {
	if target, cmd, ok := c.policy.Next(c.q.Elapsed(), c.triggered(), c.rand); ok {
		c.counters.Commands++
		pkt := covert.EncodeCommand(target, cmd)
		c.net.Send(netsim.AddrController, target, netsim.PortC2Downlink, telemetry.KindCommand, pkt)
	}

	next := c.cfg.Interval + time.Duration((c.rand.Float64()*2-1)*float64(c.cfg.CmdJitter))
	if next < time.Second {
		next = time.Second
	}
	c.q.ScheduleIn(next, c.commandLoop)
}

// Inject issues one operator-chosen command outside the policy loop.
func (c *Controller) Inject(target int, cmd covert.Command) {
	c.counters.Commands++
	pkt := covert.EncodeCommand(target, cmd)
	c.net.Send(netsim.AddrController, target, netsim.PortC2Downlink, telemetry.KindCommand, pkt)
}

// triggered lists nodes past Dormant, ascending, so policy draws are
// reproducible.
func (c *Controller) triggered() []int {
	var out []int
	for _, id := range c.order {
		if c.agents[id].Mode() != node.ModeDormant {
			out = append(out, id)
		}
	}
	return out
}

func (c *Controller) emitEvent(row telemetry.CovertEventRow) {
	if c.events != nil {
		c.events(row)
	}
}

func (c *Controller) emitAttack(row telemetry.AttackEventRow) {
	if c.attacks != nil {
		c.attacks(row)
	}
}
