// Package node models one fire-alarm sensor: its environmental reading
// path and, on compromised nodes, the attack-mode state machine driving
// the covert channel.
package node

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"firec2-sim/internal/covert"
)

// Mode is the attack-machine state of a node.
type Mode int

const (
	ModeDormant Mode = iota
	ModeActive
	ModePaused
)

func (m Mode) String() string {
	switch m {
	case ModeDormant:
		return "dormant"
	case ModeActive:
		return "active"
	case ModePaused:
		return "paused"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ErrInvalidTransition reports a downlink command that is illegal in the
// node's current mode. The command is ignored; nothing changes.
var ErrInvalidTransition = errors.New("invalid attack-mode transition")

// Trigger is the activation rule for compromised nodes, evaluated every
// physical tick.
type Trigger struct {
	After      time.Duration // earliest activation time
	ThresholdC float64       // actual temperature that arms the backdoor
}

// Sample is one entry of a node's temperature history.
type Sample struct {
	At    time.Duration
	TempC float64
}

// Exfil period bounds applied by rate commands.
const (
	maxExfilPeriod = 60 * time.Second
)

// Agent is one sensor node.
type Agent struct {
	ID         int
	IsAttacker bool

	mode        Mode
	activatedAt time.Duration

	actual   float64
	reported float64
	history  []Sample

	channel        *covert.ChannelState
	exfilPeriod    time.Duration
	minExfilPeriod time.Duration
}

// New builds a benign node.
func New(id int) *Agent {
	return &Agent{ID: id, mode: ModeDormant}
}

// NewAttacker builds a compromised node with its own private channel
// state. Cursors never cross nodes.
func NewAttacker(id int, pattern string, exfilPeriod, minExfilPeriod time.Duration) (*Agent, error) {
	ch, err := covert.NewChannelState(pattern)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	return &Agent{
		ID:             id,
		IsAttacker:     true,
		mode:           ModeDormant,
		channel:        ch,
		exfilPeriod:    exfilPeriod,
		minExfilPeriod: minExfilPeriod,
	}, nil
}

// Mode returns the current attack mode.
func (a *Agent) Mode() Mode { return a.mode }

// Active reports whether the node currently runs C2 traffic.
func (a *Agent) Active() bool { return a.mode == ModeActive }

// ActivatedAt returns when the backdoor triggered.
func (a *Agent) ActivatedAt() time.Duration { return a.activatedAt }

// Actual returns the last physical temperature seen by the sensor.
func (a *Agent) Actual() float64 { return a.actual }

// Reported returns the temperature the node currently claims.
func (a *Agent) Reported() float64 { return a.reported }

// HistoryLen returns the number of recorded samples.
func (a *Agent) HistoryLen() int { return len(a.history) }

// History returns the full append-only sample sequence.
func (a *Agent) History() []Sample { return a.history }

// Window returns the most recent n history temperatures, oldest first.
func (a *Agent) Window(n int) []float64 {
	if n > len(a.history) {
		n = len(a.history)
	}
	out := make([]float64, 0, n)
	for _, s := range a.history[len(a.history)-n:] {
		out = append(out, s.TempC)
	}
	return out
}

// Channel returns the node's covert channel state, nil on benign nodes.
func (a *Agent) Channel() *covert.ChannelState { return a.channel }

// ExfilPeriod returns the current exfiltration period.
func (a *Agent) ExfilPeriod() time.Duration { return a.exfilPeriod }

// Tick ingests this tick's physical temperature. The history append is
// unconditional and happens before any mode logic, so every tick leaves
// exactly one sample regardless of the branch taken afterwards. It
// reports whether the backdoor activated on this tick.
func (a *Agent) Tick(now time.Duration, actualTempC float64, trig Trigger, r *rand.Rand) bool {
	a.actual = actualTempC
	a.history = append(a.history, Sample{At: now, TempC: actualTempC})

	activated := false
	if a.IsAttacker && a.mode == ModeDormant && now >= trig.After && actualTempC > trig.ThresholdC {
		a.mode = ModeActive
		a.activatedAt = now
		a.reported = actualTempC
		activated = true
	}

	if a.mode == ModeDormant {
		a.reported = actualTempC
	} else {
		a.reported = a.spoof(r)
	}
	return activated
}

// spoof fabricates a calm reading: mostly the previous claim with a
// small drift, pulled toward room temperature, clamped to a plausible
// band. The fire never shows up in the reported series.
func (a *Agent) spoof(r *rand.Rand) float64 {
	drift := a.reported + (r.Float64()*2-1)*0.3
	v := 0.7*drift + 0.3*(20+r.NormFloat64())
	if v < 18 {
		v = 18
	}
	if v > 22 {
		v = 22
	}
	return v
}

// Apply runs a downlink command against the mode machine. Illegal
// transitions return ErrInvalidTransition and leave all state untouched.
func (a *Agent) Apply(cmd covert.Command) (from, to Mode, err error) {
	from = a.mode
	if !a.IsAttacker {
		return from, from, fmt.Errorf("node %d is not compromised: %w", a.ID, ErrInvalidTransition)
	}
	if a.mode == ModeDormant {
		return from, from, fmt.Errorf("node %d has not activated: %w", a.ID, ErrInvalidTransition)
	}

	switch cmd {
	case covert.CmdGoDormant:
		if a.mode != ModeActive {
			return from, from, fmt.Errorf("%s while %s: %w", cmd, a.mode, ErrInvalidTransition)
		}
		a.mode = ModePaused

	case covert.CmdResume:
		if a.mode != ModePaused {
			return from, from, fmt.Errorf("%s while %s: %w", cmd, a.mode, ErrInvalidTransition)
		}
		a.mode = ModeActive

	case covert.CmdIncreaseExfil:
		a.exfilPeriod /= 2
		if a.exfilPeriod < a.minExfilPeriod {
			a.exfilPeriod = a.minExfilPeriod
		}

	case covert.CmdDecreaseExfil:
		a.exfilPeriod *= 2
		if a.exfilPeriod > maxExfilPeriod {
			a.exfilPeriod = maxExfilPeriod
		}

	case covert.CmdChangePattern:
		p := a.channel.Pattern()
		if err := a.channel.SetPattern(p[1:] + p[:1]); err != nil {
			return from, from, err
		}

	default:
		return from, from, fmt.Errorf("%s: %w", cmd, ErrInvalidTransition)
	}
	return from, a.mode, nil
}
