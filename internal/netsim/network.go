// Package netsim is the in-process stand-in for the sensor network:
// packets move through the event queue with loss, link delay and jitter,
// never touching a real socket.
package netsim

import (
	"math"
	"math/rand"
	"time"

	"firec2-sim/internal/sched"
	"firec2-sim/internal/telemetry"
)

// Well-known ports on the fabric.
const (
	PortTelemetry  = 9000
	PortC2Uplink   = 4444
	PortC2Downlink = 4445
)

// Off-grid endpoints. Sensor nodes use their non-negative grid IDs.
const (
	AddrCloud      = -1
	AddrController = -2
)

// Params shape loss and latency for every link.
type Params struct {
	DropProbability float64
	LinkDelay       time.Duration
	JitterMin       time.Duration
	JitterMax       time.Duration
}

// Handler consumes a packet when it arrives.
type Handler func(src int, payload []byte, at time.Duration)

// PacketSink receives a row for every send, delivered or dropped.
type PacketSink func(telemetry.PacketRow)

type nodeStats struct {
	sent    int
	dropped int
}

// Network routes payloads between endpoints by port.
type Network struct {
	q    *sched.Queue
	grid telemetry.Grid
	p    Params
	rand *rand.Rand

	handlers map[int]Handler
	sink     PacketSink
	stats    map[int]*nodeStats

	apX, apY float64 // access point anchor for the radio model
}

// New builds a fabric over the event queue. All randomness (drops,
// jitter, fading) comes from r.
func New(q *sched.Queue, grid telemetry.Grid, p Params, r *rand.Rand) *Network {
	return &Network{
		q:        q,
		grid:     grid,
		p:        p,
		rand:     r,
		handlers: make(map[int]Handler),
		stats:    make(map[int]*nodeStats),
		apX:      float64(grid.Width-1) / 2 * grid.SpacingM,
		apY:      float64(grid.Height-1) / 2 * grid.SpacingM,
	}
}

// Handle registers the receiver for a port. One handler per port.
func (n *Network) Handle(port int, h Handler) {
	n.handlers[port] = h
}

// SetPacketSink registers the row sink for packet records.
func (n *Network) SetPacketSink(s PacketSink) { n.sink = s }

// Send queues payload from src to the handler on port. Loss is drawn per
// send; surviving packets arrive after propagation, link delay and jitter.
func (n *Network) Send(src, dst, port int, kind string, payload []byte) {
	now := n.q.Elapsed()
	st := n.nodeStats(src)
	st.sent++

	row := telemetry.PacketRow{
		Src:        src,
		Dst:        dst,
		Port:       port,
		Kind:       kind,
		Bytes:      len(payload),
		SimSeconds: now.Seconds(),
		Timestamp:  n.q.Now(),
	}

	if n.rand.Float64() < n.p.DropProbability {
		st.dropped++
		row.Dropped = true
		n.emit(row)
		return
	}

	delay := n.delay(src, dst)
	row.DelayMs = float64(delay) / float64(time.Millisecond)
	n.emit(row)

	n.q.ScheduleIn(delay, func() {
		if h, ok := n.handlers[port]; ok {
			h(src, payload, n.q.Elapsed())
		}
	})
}

// Stats returns packets sent and dropped for an endpoint so far.
func (n *Network) Stats(id int) (sent, dropped int) {
	st := n.nodeStats(id)
	return st.sent, st.dropped
}

// Radio reports the modeled signal quality for a node: log-distance path
// loss from the access point with Gaussian fading over a -95 dBm noise
// floor.
func (n *Network) Radio(id int) (rssiDBm, snrDB float64) {
	row, col := n.grid.Cell(id)
	dx := float64(col)*n.grid.SpacingM - n.apX
	dy := float64(row)*n.grid.SpacingM - n.apY
	dist := math.Max(1, math.Sqrt(dx*dx+dy*dy))

	const (
		txPowerDBm = 20.0
		refLossDB  = 40.0
		exponent   = 3.0
		noiseFloor = -95.0
	)
	rssi := txPowerDBm - (refLossDB + 10*exponent*math.Log10(dist))
	rssi += n.rand.NormFloat64() * 2
	return rssi, rssi - noiseFloor
}

func (n *Network) nodeStats(id int) *nodeStats {
	st, ok := n.stats[id]
	if !ok {
		st = &nodeStats{}
		n.stats[id] = st
	}
	return st
}

func (n *Network) emit(row telemetry.PacketRow) {
	if n.sink != nil {
		n.sink(row)
	}
}

// delay models one hop: propagation at light speed, the configured link
// delay, and fresh uniform jitter.
func (n *Network) delay(src, dst int) time.Duration {
	const offGridM = 100.0
	distM := offGridM
	if n.grid.Contains(src) && n.grid.Contains(dst) {
		distM = n.grid.DistanceM(src, dst)
	}
	prop := time.Duration(distM / 3e8 * float64(time.Second))
	jit := n.p.JitterMin
	if span := n.p.JitterMax - n.p.JitterMin; span > 0 {
		jit += time.Duration(n.rand.Float64() * float64(span))
	}
	return prop + n.p.LinkDelay + jit
}
