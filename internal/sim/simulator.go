// Simulator orchestrating the sensor grid, fire physics and covert C2
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"firec2-sim/internal/c2"
	"firec2-sim/internal/config"
	"firec2-sim/internal/covert"
	"firec2-sim/internal/fire"
	"firec2-sim/internal/netsim"
	"firec2-sim/internal/node"
	"firec2-sim/internal/sched"
	"firec2-sim/internal/telemetry"
)

// NodeStateWriter is the primary row sink.
type NodeStateWriter interface {
	WriteState(telemetry.NodeStateRow) error
}

// Optional: writers may support batch mode for state rows.
type batchNodeStateWriter interface {
	WriteStates([]telemetry.NodeStateRow) error
}

// RunWriter is the full sink surface a run drives. MultiWriter
// implements it; tests usually wrap a mock in NewMultiWriter.
type RunWriter interface {
	NodeStateWriter
	CovertEventWriter
	FireSampleWriter
	PacketWriter
	AttackEventWriter
	NetworkMetricsWriter
}

// NodeSnapshot is one cell of the admin grid view.
type NodeSnapshot struct {
	ID         int     `json:"id"`
	Row        int     `json:"row"`
	Col        int     `json:"col"`
	TempC      float64 `json:"temp_c"`
	ReportedC  float64 `json:"reported_c"`
	Heat       float64 `json:"heat"`
	OnFire     bool    `json:"on_fire"`
	BurnedOut  bool    `json:"burned_out"`
	IsAttacker bool    `json:"is_attacker"`
	Mode       string  `json:"mode"`
}

// Status summarizes a running simulation for the admin UI.
type Status struct {
	RunID           string  `json:"run_id"`
	SimSeconds      float64 `json:"sim_seconds"`
	Ticks           int     `json:"ticks"`
	NodesBurning    int     `json:"nodes_burning"`
	NodesBurnedOut  int     `json:"nodes_burned_out"`
	ActiveAttackers int     `json:"active_attackers"`
	Beacons         int     `json:"beacons"`
	Exfils          int     `json:"exfils"`
	Commands        int     `json:"commands"`
	Accepted        int     `json:"commands_accepted"`
	Rejected        int     `json:"commands_rejected"`
	Malformed       int     `json:"malformed"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsDropped  int     `json:"packets_dropped"`
	CloudAlarms     int     `json:"cloud_alarms"`
	Ignitions       int     `json:"ignitions"`
}

// Summary is the outcome of a finished run.
type Summary struct {
	RunID          string  `json:"run_id"`
	SimSeconds     float64 `json:"sim_seconds"`
	Ticks          int     `json:"ticks"`
	PacketsSent    int     `json:"packets_sent"`
	PacketsDropped int     `json:"packets_dropped"`
	Beacons        int     `json:"beacons"`
	Exfils         int     `json:"exfils"`
	Commands       int     `json:"commands"`
	Accepted       int     `json:"commands_accepted"`
	Rejected       int     `json:"commands_rejected"`
	Malformed      int     `json:"malformed"`
	Ignitions      int     `json:"ignitions"`
	NodesBurning   int     `json:"nodes_burning"`
	NodesBurnedOut int     `json:"nodes_burned_out"`
	CloudAlarms    int     `json:"cloud_alarms"`
}

// Benign send cadence noise and its floor.
const (
	sendJitter = 80 * time.Millisecond
	minSendGap = 100 * time.Millisecond
)

// eventRingSize bounds the covert event ring kept for the admin UI.
const eventRingSize = 256

// Simulator owns the arena: thermal field, one agent per cell, network
// fabric and C2 controller, all driven by one event queue and one
// seeded generator. Callbacks run on the goroutine that drives Run;
// the admin server reads only the published snapshot and event ring.
type Simulator struct {
	log    *slog.Logger
	cfg    *config.Config
	runID  string
	writer RunWriter

	clock *sched.Clock
	queue *sched.Queue
	rand  *rand.Rand

	grid   telemetry.Grid
	engine *fire.Engine
	agents []*node.Agent
	net    *netsim.Network
	ctrl   *c2.Controller

	metrics *Metrics
	speed   float64

	trigger      node.Trigger
	tickInterval time.Duration
	sendInterval time.Duration
	stateEvery   int
	metricsEvery int

	alarmThresholdC float64
	warnThresholdC  float64
	alarmCooldown   time.Duration
	alarmed         bool
	lastAlarm       time.Duration

	ticks         int
	ignitions     int
	alarms        int
	sent          int
	dropped       int
	lastMalformed int

	snapMu   sync.Mutex
	snapshot []NodeSnapshot
	status   Status

	rowMu  sync.Mutex
	events []telemetry.CovertEventRow
}

// NewSimulator builds the arena from cfg. The configuration is assumed
// validated; only agent construction can fail here.
func NewSimulator(log *slog.Logger, cfg *config.Config, writer RunWriter) (*Simulator, error) {
	clock := sched.NewClock()
	queue := sched.NewQueue(clock)
	rng := rand.New(rand.NewSource(cfg.Seed))
	grid := telemetry.Grid{Width: cfg.Grid.Width, Height: cfg.Grid.Height, SpacingM: cfg.Grid.SpacingM}

	s := &Simulator{
		log:             log,
		cfg:             cfg,
		runID:           uuid.NewString(),
		writer:          writer,
		clock:           clock,
		queue:           queue,
		rand:            rng,
		grid:            grid,
		engine:          fire.NewEngine(grid, fireParams(cfg), rng),
		tickInterval:    seconds(cfg.Run.TickS),
		sendInterval:    seconds(cfg.Network.SendIntervalS),
		stateEvery:      cfg.Run.StateSampleEvery,
		metricsEvery:    cfg.Run.MetricsSampleEvery,
		alarmThresholdC: cfg.Alarm.ThresholdC,
		warnThresholdC:  cfg.Covert.DetectThresholdC,
		alarmCooldown:   seconds(cfg.Alarm.CooldownS),
		trigger: node.Trigger{
			After:      seconds(cfg.Covert.ActivationAfterS),
			ThresholdC: cfg.Covert.DetectThresholdC,
		},
	}
	if s.stateEvery < 1 {
		s.stateEvery = 1
	}
	if s.metricsEvery < 1 {
		s.metricsEvery = 1
	}

	s.net = netsim.New(queue, grid, netsim.Params{
		DropProbability: cfg.Network.DropProbability,
		LinkDelay:       millis(cfg.Network.LinkDelayMs),
		JitterMin:       millis(cfg.Network.JitterMinMs),
		JitterMax:       millis(cfg.Network.JitterMaxMs),
	}, rng)

	s.ctrl = c2.New(log, queue, s.net, c2.Config{
		Timing: covert.Params{
			BaseInterval: seconds(cfg.Covert.BaseIntervalS),
			DelayDelta:   seconds(cfg.Covert.DelayDeltaS),
			Jitter:       seconds(cfg.Covert.JitterS),
		},
		ExfilWindow: cfg.Covert.ExfilHistoryWindow,
		Interval:    seconds(cfg.Attack.CommandIntervalS),
		CmdJitter:   seconds(cfg.Attack.CommandJitterS),
		StartAt:     seconds(cfg.Attack.CommandStartS),
	}, rng)

	attackers := make(map[int]bool, len(cfg.Attack.Nodes))
	for _, id := range cfg.Attack.Nodes {
		attackers[id] = true
	}
	s.agents = make([]*node.Agent, grid.Size())
	for id := range s.agents {
		if attackers[id] {
			a, err := node.NewAttacker(id, cfg.Covert.BitPattern,
				seconds(cfg.Covert.ExfilPeriodS), seconds(cfg.Covert.MinExfilPeriodS))
			if err != nil {
				return nil, err
			}
			s.agents[id] = a
			s.ctrl.Register(a)
			continue
		}
		s.agents[id] = node.New(id)
	}

	s.net.SetPacketSink(s.onPacket)
	s.net.Handle(netsim.PortTelemetry, s.cloudSink)
	s.ctrl.SetSinks(s.onCovertEvent, s.onAttackEvent)
	return s, nil
}

// RunID returns this run's unique identifier.
func (s *Simulator) RunID() string { return s.runID }

// Config returns the active configuration.
func (s *Simulator) Config() *config.Config { return s.cfg }

// SetMetrics attaches Prometheus collectors updated during the run.
func (s *Simulator) SetMetrics(m *Metrics) { s.metrics = m }

// SetSpeed paces the run against wall time (1.0 = real time); zero or
// negative runs as fast as possible.
func (s *Simulator) SetSpeed(v float64) { s.speed = v }

// SetPolicy swaps the downlink command policy before the run starts.
func (s *Simulator) SetPolicy(p c2.Policy) { s.ctrl.SetPolicy(p) }

// Run arms the initial event set and drains the queue until the
// configured stop time or ctx cancellation, then returns the summary.
func (s *Simulator) Run(ctx context.Context) (Summary, error) {
	s.log.Info("run starting",
		"run_id", s.runID,
		"seed", s.cfg.Seed,
		"grid", fmt.Sprintf("%dx%d", s.grid.Width, s.grid.Height),
		"attackers", len(s.cfg.Attack.Nodes),
		"duration_s", s.cfg.Run.StopAfterS)

	s.queue.Schedule(s.tickInterval, s.tick)
	for _, a := range s.agents {
		id := a.ID
		s.queue.Schedule(s.firstSend(id), func() { s.telemetryLoop(id) })
	}
	s.queue.Schedule(seconds(s.cfg.Fire.StartS), func() { s.igniteNow(s.cfg.Fire.OriginNode) })
	s.ctrl.Start()
	s.publish(0)

	err := s.queue.Run(ctx, seconds(s.cfg.Run.StopAfterS), s.speed)

	sum := s.Summary()
	s.log.Info("run complete",
		"sim_seconds", sum.SimSeconds,
		"beacons", sum.Beacons,
		"exfils", sum.Exfils,
		"commands", sum.Commands,
		"ignitions", sum.Ignitions,
		"cloud_alarms", sum.CloudAlarms)
	return sum, err
}

// tick advances the physical world one step: fire field first, then
// every agent against its cell's new temperature, then whatever row
// samples are due.
func (s *Simulator) tick() {
	now := s.queue.Elapsed()
	s.ticks++

	var fires []telemetry.FireSampleRow
	ignitedNow := make(map[int]bool)
	for _, id := range s.engine.Step(now) {
		ignitedNow[id] = true
		s.ignitions++
		s.log.Info("fire spread", "node", id, "at_s", now.Seconds())
		if s.metrics != nil {
			s.metrics.Ignitions.Inc()
		}
		fires = append(fires, s.fireRow(s.engine.Cell(id), true, now))
	}

	for _, a := range s.agents {
		cell := s.engine.Cell(a.ID)
		if a.Tick(now, cell.TempC, s.trigger, s.rand) {
			s.onAttackEvent(telemetry.AttackEventRow{
				NodeID:     a.ID,
				Event:      telemetry.AttackEventActivated,
				FromMode:   node.ModeDormant.String(),
				ToMode:     node.ModeActive.String(),
				Detail:     fmt.Sprintf("actual %.1fC", cell.TempC),
				SimSeconds: now.Seconds(),
				Timestamp:  s.queue.Now(),
			})
			s.ctrl.Activate(a.ID)
		}
	}

	if s.ticks%s.stateEvery == 0 {
		states := make([]telemetry.NodeStateRow, len(s.agents))
		for i, a := range s.agents {
			states[i] = s.stateRow(a, now)
		}
		s.writeStates(states)

		for _, c := range s.engine.Cells() {
			if ignitedNow[c.ID] {
				continue
			}
			if c.OnFire || c.BurnedOut || c.Heat > 0.01 {
				fires = append(fires, s.fireRow(c, false, now))
			}
		}
	}
	if len(fires) > 0 {
		s.writeFires(fires)
	}

	if s.ticks%s.metricsEvery == 0 {
		rows := make([]telemetry.NetworkMetricsRow, len(s.agents))
		for i, a := range s.agents {
			rssi, snr := s.net.Radio(a.ID)
			sent, dropped := s.net.Stats(a.ID)
			rows[i] = telemetry.NetworkMetricsRow{
				RunID:          s.runID,
				NodeID:         a.ID,
				RSSIdBm:        rssi,
				SNRdB:          snr,
				PacketsSent:    sent,
				PacketsDropped: dropped,
				SimSeconds:     now.Seconds(),
				Timestamp:      s.queue.Now(),
			}
		}
		s.writeMetrics(rows)
	}

	s.publish(now)
	s.queue.ScheduleIn(s.tickInterval, s.tick)
}

// firstSend staggers node bootstrap: a base delay, a per-node offset
// and a little jitter, so the grid never starts in lockstep.
func (s *Simulator) firstSend(id int) time.Duration {
	return time.Second +
		time.Duration(id)*200*time.Millisecond +
		time.Duration(s.rand.Float64()*float64(500*time.Millisecond))
}

// telemetryLoop is one node's benign reporting cycle. Spoofing nodes
// use the same wire format, so nothing upstream can tell them apart.
func (s *Simulator) telemetryLoop(id int) {
	a := s.agents[id]
	pkt := covert.EncodeTelemetry(id, s.readings(a))
	s.net.Send(id, netsim.AddrCloud, netsim.PortTelemetry, telemetry.KindTelemetry, pkt)
	s.queue.ScheduleIn(s.nextSend(), func() { s.telemetryLoop(id) })
}

// readings builds the packet body: the claimed temperature with
// per-value sensor scatter, wider when the cell burns, damped when the
// node spoofs.
func (s *Simulator) readings(a *node.Agent) []float64 {
	const count = (covert.UplinkPacketSize - 2) / 4
	claimed := a.Reported()
	if a.HistoryLen() == 0 {
		claimed = s.engine.Cell(a.ID).TempC
	}
	spread := 0.1
	switch {
	case a.Mode() != node.ModeDormant:
		spread = 0.5
	case s.engine.Cell(a.ID).OnFire:
		spread = 2.0
	}
	vals := make([]float64, count)
	for i := range vals {
		vals[i] = claimed + (s.rand.Float64()*2-1)*spread
	}
	return vals
}

func (s *Simulator) nextSend() time.Duration {
	d := s.sendInterval + time.Duration((s.rand.Float64()*2-1)*float64(sendJitter))
	if d < minSendGap {
		d = minSendGap
	}
	return d
}

// cloudSink is the monitoring backend: every report is parsed and the
// claimed temperature checked against the alarm threshold, debounced
// by the cooldown. Spoofed readings keep this alarm silent while the
// fire is real.
func (s *Simulator) cloudSink(src int, payload []byte, at time.Duration) {
	id, readings, err := covert.DecodeTelemetry(payload)
	if err != nil || len(readings) == 0 {
		s.log.Warn("cloud discarded packet", "src", src, "bytes", len(payload))
		return
	}
	temp := readings[0]
	if temp < s.alarmThresholdC {
		if temp >= s.warnThresholdC {
			s.log.Debug("cloud temperature elevated", "node", id, "reported_c", temp)
		}
		return
	}
	if s.alarmed && at-s.lastAlarm < s.alarmCooldown {
		return
	}
	s.alarmed = true
	s.lastAlarm = at
	s.alarms++
	s.log.Warn("cloud fire alarm", "node", id, "reported_c", temp, "at_s", at.Seconds())
	if s.metrics != nil {
		s.metrics.CloudAlarms.Inc()
	}
}

// igniteNow lights a cell; no-op when already burning or burned out.
func (s *Simulator) igniteNow(id int) {
	now := s.queue.Elapsed()
	if !s.engine.Ignite(id, now) {
		return
	}
	s.ignitions++
	s.log.Info("fire ignition", "node", id, "at_s", now.Seconds())
	if s.metrics != nil {
		s.metrics.Ignitions.Inc()
	}
	s.writeFires([]telemetry.FireSampleRow{s.fireRow(s.engine.Cell(id), true, now)})
}

func (s *Simulator) stateRow(a *node.Agent, now time.Duration) telemetry.NodeStateRow {
	c := s.engine.Cell(a.ID)
	row, col := s.grid.Cell(a.ID)
	return telemetry.NodeStateRow{
		RunID:       s.runID,
		NodeID:      a.ID,
		Row:         row,
		Col:         col,
		ActualTempC: c.TempC,
		ReportedC:   a.Reported(),
		HeatLevel:   c.Heat,
		OnFire:      c.OnFire,
		BurnedOut:   c.BurnedOut,
		AttackMode:  a.Mode().String(),
		IsAttacker:  a.IsAttacker,
		HistoryLen:  a.HistoryLen(),
		SimSeconds:  now.Seconds(),
		Timestamp:   s.queue.Now(),
	}
}

func (s *Simulator) fireRow(c *fire.Cell, ignited bool, now time.Duration) telemetry.FireSampleRow {
	return telemetry.FireSampleRow{
		RunID:            s.runID,
		NodeID:           c.ID,
		HeatLevel:        c.Heat,
		TempC:            c.TempC,
		OnFire:           c.OnFire,
		NeighborsBurning: s.engine.BurningWithin(c.ID),
		Ignited:          ignited,
		SimSeconds:       now.Seconds(),
		Timestamp:        s.queue.Now(),
	}
}

// onPacket stamps and forwards every packet record from the fabric.
func (s *Simulator) onPacket(row telemetry.PacketRow) {
	row.RunID = s.runID
	s.sent++
	if row.Dropped {
		s.dropped++
	}
	if s.metrics != nil {
		s.metrics.Packets.WithLabelValues(row.Kind).Inc()
		if row.Dropped {
			s.metrics.PacketsDropped.Inc()
		}
	}
	if err := s.writer.WritePacket(row); err != nil {
		s.log.Warn("packet write failed", "err", err)
	}
}

// onCovertEvent stamps and forwards covert rows from the controller.
func (s *Simulator) onCovertEvent(row telemetry.CovertEventRow) {
	row.RunID = s.runID
	s.recordEvent(row)
	if s.metrics != nil {
		s.metrics.CovertEvents.WithLabelValues(row.Direction).Inc()
		if row.Direction == telemetry.DirectionDownlink {
			s.metrics.Commands.WithLabelValues(row.Command, strconv.FormatBool(row.Accepted)).Inc()
		}
	}
	if err := s.writer.WriteCovertEvent(row); err != nil {
		s.log.Warn("covert event write failed", "err", err)
	}
}

// onAttackEvent stamps and forwards attack lifecycle rows.
func (s *Simulator) onAttackEvent(row telemetry.AttackEventRow) {
	row.RunID = s.runID
	if err := s.writer.WriteAttackEvent(row); err != nil {
		s.log.Warn("attack event write failed", "err", err)
	}
}

func (s *Simulator) recordEvent(row telemetry.CovertEventRow) {
	s.rowMu.Lock()
	s.events = append(s.events, row)
	if len(s.events) > eventRingSize {
		s.events = s.events[len(s.events)-eventRingSize:]
	}
	s.rowMu.Unlock()
}

func (s *Simulator) writeStates(rows []telemetry.NodeStateRow) {
	if bw, ok := s.writer.(batchNodeStateWriter); ok {
		if err := bw.WriteStates(rows); err != nil {
			s.log.Warn("state batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := s.writer.WriteState(r); err != nil {
			s.log.Warn("state write failed", "node", r.NodeID, "err", err)
		}
	}
}

func (s *Simulator) writeFires(rows []telemetry.FireSampleRow) {
	if bw, ok := s.writer.(batchFireSampleWriter); ok {
		if err := bw.WriteFireSamples(rows); err != nil {
			s.log.Warn("fire batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := s.writer.WriteFireSample(r); err != nil {
			s.log.Warn("fire write failed", "node", r.NodeID, "err", err)
		}
	}
}

func (s *Simulator) writeMetrics(rows []telemetry.NetworkMetricsRow) {
	if bw, ok := s.writer.(batchNetworkMetricsWriter); ok {
		if err := bw.WriteNetworkMetricsBatch(rows); err != nil {
			s.log.Warn("metrics batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := s.writer.WriteNetworkMetrics(r); err != nil {
			s.log.Warn("metrics write failed", "node", r.NodeID, "err", err)
		}
	}
}

// publish refreshes the cross-goroutine view the admin server reads.
func (s *Simulator) publish(now time.Duration) {
	snap := make([]NodeSnapshot, len(s.agents))
	var burning, burnedOut, active int
	for i, a := range s.agents {
		c := s.engine.Cell(a.ID)
		row, col := s.grid.Cell(a.ID)
		snap[i] = NodeSnapshot{
			ID:         a.ID,
			Row:        row,
			Col:        col,
			TempC:      c.TempC,
			ReportedC:  a.Reported(),
			Heat:       c.Heat,
			OnFire:     c.OnFire,
			BurnedOut:  c.BurnedOut,
			IsAttacker: a.IsAttacker,
			Mode:       a.Mode().String(),
		}
		if c.OnFire {
			burning++
		}
		if c.BurnedOut {
			burnedOut++
		}
		if a.IsAttacker && a.Active() {
			active++
		}
	}

	cnt := s.ctrl.Counters()
	st := Status{
		RunID:           s.runID,
		SimSeconds:      now.Seconds(),
		Ticks:           s.ticks,
		NodesBurning:    burning,
		NodesBurnedOut:  burnedOut,
		ActiveAttackers: active,
		Beacons:         cnt.Beacons,
		Exfils:          cnt.Exfils,
		Commands:        cnt.Commands,
		Accepted:        cnt.Accepted,
		Rejected:        cnt.Rejected,
		Malformed:       cnt.Malformed,
		PacketsSent:     s.sent,
		PacketsDropped:  s.dropped,
		CloudAlarms:     s.alarms,
		Ignitions:       s.ignitions,
	}

	if s.metrics != nil {
		if d := cnt.Malformed - s.lastMalformed; d > 0 {
			s.metrics.Malformed.Add(float64(d))
		}
		s.lastMalformed = cnt.Malformed
		s.metrics.NodesBurning.Set(float64(burning))
		s.metrics.NodesActiveAttack.Set(float64(active))
		s.metrics.SimSeconds.Set(now.Seconds())
	}

	s.snapMu.Lock()
	s.snapshot = snap
	s.status = st
	s.snapMu.Unlock()
}

// Status returns the last published run status.
func (s *Simulator) Status() Status {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.status
}

// GridSnapshot returns the last published per-node view, node-ID order.
func (s *Simulator) GridSnapshot() []NodeSnapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	out := make([]NodeSnapshot, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Events returns a copy of the recent covert event ring, oldest first.
func (s *Simulator) Events() []telemetry.CovertEventRow {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()
	out := make([]telemetry.CovertEventRow, len(s.events))
	copy(out, s.events)
	return out
}

// InjectCommand schedules an operator command for target onto the
// run's event queue. Safe to call from other goroutines.
func (s *Simulator) InjectCommand(target int, cmd covert.Command) error {
	if !s.grid.Contains(target) {
		return fmt.Errorf("node %d outside grid", target)
	}
	if !cmd.Valid() {
		return fmt.Errorf("unknown command %q", cmd.String())
	}
	s.queue.ScheduleIn(0, func() { s.ctrl.Inject(target, cmd) })
	return nil
}

// IgniteNode schedules a manual ignition at id. Safe to call from
// other goroutines.
func (s *Simulator) IgniteNode(id int) error {
	if !s.grid.Contains(id) {
		return fmt.Errorf("node %d outside grid", id)
	}
	s.queue.ScheduleIn(0, func() { s.igniteNow(id) })
	return nil
}

// Summary reads the live counters; call it after Run returns.
func (s *Simulator) Summary() Summary {
	var burning, burnedOut int
	for _, c := range s.engine.Cells() {
		if c.OnFire {
			burning++
		}
		if c.BurnedOut {
			burnedOut++
		}
	}
	cnt := s.ctrl.Counters()
	return Summary{
		RunID:          s.runID,
		SimSeconds:     s.clock.Seconds(),
		Ticks:          s.ticks,
		PacketsSent:    s.sent,
		PacketsDropped: s.dropped,
		Beacons:        cnt.Beacons,
		Exfils:         cnt.Exfils,
		Commands:       cnt.Commands,
		Accepted:       cnt.Accepted,
		Rejected:       cnt.Rejected,
		Malformed:      cnt.Malformed,
		Ignitions:      s.ignitions,
		NodesBurning:   burning,
		NodesBurnedOut: burnedOut,
		CloudAlarms:    s.alarms,
	}
}

func fireParams(cfg *config.Config) fire.Params {
	return fire.Params{
		AmbientMinC:       cfg.Fire.AmbientMinC,
		AmbientMaxC:       cfg.Fire.AmbientMaxC,
		FireTempC:         cfg.Fire.FireTempC,
		DiffusionRate:     cfg.Fire.DiffusionRate,
		DiffusionCutoff:   cfg.Fire.DiffusionCutoff,
		Inertia:           cfg.Fire.Inertia,
		Decay:             cfg.Fire.Decay,
		IgnitionThreshold: cfg.Fire.IgnitionThreshold,
		SpreadRate:        cfg.Fire.SpreadRate,
		SpreadDelay:       seconds(cfg.Fire.SpreadDelayS),
		Burnout:           seconds(cfg.Fire.BurnoutS),
		NoiseC:            cfg.Fire.NoiseC,
		Tick:              seconds(cfg.Run.TickS),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func millis(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}
