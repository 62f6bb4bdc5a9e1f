package c2

import (
	"math/rand"
	"sort"
	"time"

	"firec2-sim/internal/covert"
)

// Policy picks the next downlink command. triggered lists the nodes past
// Dormant in ascending ID order; ok=false skips this cycle.
type Policy interface {
	Next(now time.Duration, triggered []int, r *rand.Rand) (target int, cmd covert.Command, ok bool)
}

// RandomPolicy mirrors an opportunistic operator: a uniformly random
// triggered node and a uniformly random mode or rate command.
type RandomPolicy struct{}

var randomCommands = []covert.Command{
	covert.CmdIncreaseExfil,
	covert.CmdDecreaseExfil,
	covert.CmdGoDormant,
	covert.CmdResume,
}

func (RandomPolicy) Next(_ time.Duration, triggered []int, r *rand.Rand) (int, covert.Command, bool) {
	if len(triggered) == 0 {
		return 0, 0, false
	}
	target := triggered[r.Intn(len(triggered))]
	cmd := randomCommands[r.Intn(len(randomCommands))]
	return target, cmd, true
}

// Step is one scripted downlink command.
type Step struct {
	At      time.Duration
	Node    int
	Command covert.Command
}

// ScriptedPolicy replays a fixed command schedule: each cycle issues the
// earliest step that has come due, regardless of trigger state, so a
// script can poke nodes that never activated.
type ScriptedPolicy struct {
	steps []Step
	next  int
}

// NewScriptedPolicy sorts the steps by time and returns the policy.
func NewScriptedPolicy(steps []Step) *ScriptedPolicy {
	s := make([]Step, len(steps))
	copy(s, steps)
	sort.SliceStable(s, func(i, j int) bool { return s[i].At < s[j].At })
	return &ScriptedPolicy{steps: s}
}

func (p *ScriptedPolicy) Next(now time.Duration, _ []int, _ *rand.Rand) (int, covert.Command, bool) {
	if p.next >= len(p.steps) || p.steps[p.next].At > now {
		return 0, 0, false
	}
	step := p.steps[p.next]
	p.next++
	return step.Node, step.Command, true
}

// Remaining reports how many scripted steps have not been issued yet.
func (p *ScriptedPolicy) Remaining() int { return len(p.steps) - p.next }
