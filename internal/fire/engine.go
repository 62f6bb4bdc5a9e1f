// Package fire advances the shared thermal field: ignition, heat
// diffusion from burning nodes, probabilistic spread and burnout.
package fire

import (
	"math"
	"math/rand"
	"time"

	"firec2-sim/internal/telemetry"
)

// Params are the thermal model constants for one run.
type Params struct {
	AmbientMinC       float64
	AmbientMaxC       float64
	FireTempC         float64
	DiffusionRate     float64       // heat radiated to a neighbor at distance 1
	DiffusionCutoff   float64       // grid-unit radius beyond which radiation is zero
	Inertia           float64       // fraction of incoming heat absorbed per tick
	Decay             float64       // retained fraction of accumulated heat per tick
	IgnitionThreshold float64       // heat level where ignition draws begin
	SpreadRate        float64       // scales the per-tick ignition probability
	SpreadDelay       time.Duration // burning nodes radiate only after this
	Burnout           time.Duration // time on fire before burning out
	NoiseC            float64       // uniform sensor-scale temperature noise
	Tick              time.Duration
}

// Cell is the thermal state of one grid position.
type Cell struct {
	ID        int
	BaseTempC float64
	Heat      float64
	TempC     float64
	OnFire    bool
	BurnedOut bool
	IgnitedAt time.Duration // meaningful once OnFire or BurnedOut
}

// IgnitionFunc maps an over-threshold heat level to a per-tick ignition
// probability. It must be monotone in heat.
type IgnitionFunc func(heat float64, p Params) float64

// DefaultIgnition scales linearly with heat and tick length.
func DefaultIgnition(heat float64, p Params) float64 {
	pr := p.SpreadRate * heat * p.Tick.Seconds()
	if pr > 1 {
		pr = 1
	}
	return pr
}

// Engine owns the thermal field and advances it tick by tick.
type Engine struct {
	grid   telemetry.Grid
	p      Params
	cells  []*Cell
	rand   *rand.Rand
	ignite IgnitionFunc
	intake []float64 // per-tick scratch
}

// NewEngine builds the field with per-node base temperatures drawn from
// the ambient band. All randomness comes from r.
func NewEngine(grid telemetry.Grid, p Params, r *rand.Rand) *Engine {
	e := &Engine{
		grid:   grid,
		p:      p,
		rand:   r,
		ignite: DefaultIgnition,
		cells:  make([]*Cell, grid.Size()),
		intake: make([]float64, grid.Size()),
	}
	for i := range e.cells {
		base := p.AmbientMinC + r.Float64()*(p.AmbientMaxC-p.AmbientMinC)
		e.cells[i] = &Cell{ID: i, BaseTempC: base, TempC: base}
	}
	return e
}

// SetIgnitionFunc overrides the ignition probability model.
func (e *Engine) SetIgnitionFunc(fn IgnitionFunc) {
	if fn != nil {
		e.ignite = fn
	}
}

// Cells returns the field in node-ID order.
func (e *Engine) Cells() []*Cell { return e.cells }

// Cell returns the cell for a node ID.
func (e *Engine) Cell(id int) *Cell { return e.cells[id] }

// Ignite forces a cell on fire, the way the scenario fire origin starts.
// It reports whether the cell actually changed state.
func (e *Engine) Ignite(id int, now time.Duration) bool {
	c := e.cells[id]
	if c.OnFire || c.BurnedOut {
		return false
	}
	e.igniteCell(c, now)
	return true
}

func (e *Engine) igniteCell(c *Cell, now time.Duration) {
	c.OnFire = true
	c.Heat = 1.0
	c.IgnitedAt = now
	c.TempC = e.p.FireTempC + e.noise()*5
}

// BurningWithin counts burning nodes within the diffusion cutoff of id.
func (e *Engine) BurningWithin(id int) int {
	n := 0
	e.grid.Within(id, e.p.DiffusionCutoff, func(other int, _ float64) {
		if e.cells[other].OnFire {
			n++
		}
	})
	return n
}

// Step advances the field by one tick and returns the IDs of cells that
// ignited this tick, ascending. Heat intake is computed from the
// previous tick's burning set before any state changes, so update order
// inside a tick cannot leak into the physics.
func (e *Engine) Step(now time.Duration) []int {
	for i := range e.intake {
		e.intake[i] = 0
	}
	for _, src := range e.cells {
		if !src.OnFire || now-src.IgnitedAt < e.p.SpreadDelay {
			continue
		}
		e.grid.Within(src.ID, e.p.DiffusionCutoff, func(other int, dist float64) {
			e.intake[other] += e.p.DiffusionRate / math.Pow(dist, 1.5)
		})
	}

	var ignited []int
	for _, c := range e.cells {
		switch {
		case c.OnFire:
			if now-c.IgnitedAt >= e.p.Burnout {
				c.OnFire = false
				c.BurnedOut = true
				c.Heat *= 0.5
				c.TempC = e.ambientTemp(c)
				continue
			}
			c.TempC = e.p.FireTempC + e.noise()*5

		case c.BurnedOut:
			c.Heat *= 0.5
			c.TempC = e.ambientTemp(c)

		default:
			c.Heat = clamp01(c.Heat*e.p.Decay + e.intake[c.ID]*e.p.Inertia)
			if c.Heat >= e.p.IgnitionThreshold && e.rand.Float64() < e.ignite(c.Heat, e.p) {
				e.igniteCell(c, now)
				ignited = append(ignited, c.ID)
				continue
			}
			c.TempC = e.ambientTemp(c)
		}
	}
	return ignited
}

// ambientTemp maps accumulated heat onto a sensor-scale temperature.
func (e *Engine) ambientTemp(c *Cell) float64 {
	return c.BaseTempC + c.Heat*(e.p.FireTempC-c.BaseTempC)*0.6 + e.noise()
}

func (e *Engine) noise() float64 {
	if e.p.NoiseC <= 0 {
		return 0
	}
	return (e.rand.Float64()*2 - 1) * e.p.NoiseC
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
