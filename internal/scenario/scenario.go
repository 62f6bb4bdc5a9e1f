package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"firec2-sim/internal/c2"
	"firec2-sim/internal/covert"
)

// Scenario is a scripted operator timeline: downlink commands issued to
// compromised nodes at fixed points in simulation time. It replaces the
// random command policy for reproducible experiment runs.
type Scenario struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step issues one command to one node.
type Step struct {
	AtS     float64 `yaml:"at_s"`
	Node    int     `yaml:"node"`
	Command string  `yaml:"command"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// Program validates the timeline against the attacker set and converts
// it into scripted policy steps. A step naming an unknown node or
// command is a configuration fault, caught here before the run starts.
func (s *Scenario) Program(attackers []int) ([]c2.Step, error) {
	known := make(map[int]bool, len(attackers))
	for _, id := range attackers {
		known[id] = true
	}

	steps := make([]c2.Step, 0, len(s.Steps))
	for i, st := range s.Steps {
		if st.AtS < 0 {
			return nil, fmt.Errorf("step %d: negative time %.2f", i, st.AtS)
		}
		if !known[st.Node] {
			return nil, fmt.Errorf("step %d: node %d is not a configured attacker", i, st.Node)
		}
		cmd, err := covert.ParseCommand(st.Command)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, c2.Step{
			At:      time.Duration(st.AtS * float64(time.Second)),
			Node:    st.Node,
			Command: cmd,
		})
	}
	return steps, nil
}
