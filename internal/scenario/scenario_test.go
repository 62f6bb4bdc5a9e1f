package scenario

import (
	"testing"
	"time"

	"firec2-sim/internal/covert"
)

func TestProgramConvertsSteps(t *testing.T) {
	s := Scenario{
		Steps: []Step{
			{AtS: 60, Node: 26, Command: "go_dormant"},
			{AtS: 90.5, Node: 26, Command: "resume"},
		},
	}

	steps, err := s.Program([]int{26, 45})
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Command != covert.CmdGoDormant || steps[0].Node != 26 {
		t.Fatalf("unexpected first step %+v", steps[0])
	}
	if steps[1].At != 90500*time.Millisecond {
		t.Fatalf("fractional seconds lost: %v", steps[1].At)
	}
}

func TestProgramRejectsBadSteps(t *testing.T) {
	cases := []struct {
		name string
		step Step
	}{
		{"unknown command", Step{AtS: 10, Node: 26, Command: "self_destruct"}},
		{"unknown node", Step{AtS: 10, Node: 99, Command: "resume"}},
		{"negative time", Step{AtS: -1, Node: 26, Command: "resume"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Scenario{Steps: []Step{tc.step}}
			if _, err := s.Program([]int{26}); err == nil {
				t.Fatalf("expected error for %+v", tc.step)
			}
		})
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/quiet_exit.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "quiet-exit" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description == "" {
		t.Fatal("missing description")
	}
	if len(sc.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sc.Steps))
	}
	if sc.Steps[0].Command != "go_dormant" {
		t.Fatalf("unexpected command %s", sc.Steps[0].Command)
	}
}

func TestBuiltInScenarios(t *testing.T) {
	attackers := []int{25, 26, 34, 36, 45}
	for name, sc := range BuiltIn() {
		if sc.Description == "" {
			t.Fatalf("scenario %s missing description", name)
		}
		if len(sc.Steps) == 0 {
			t.Fatalf("scenario %s has no steps", name)
		}
		if _, err := sc.Program(attackers); err != nil {
			t.Fatalf("scenario %s does not program: %v", name, err)
		}
	}
}
