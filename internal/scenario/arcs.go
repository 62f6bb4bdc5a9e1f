package scenario

// BuiltIn returns predefined operator timelines for common experiment
// shapes. Node IDs follow the default attacker set.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"burst-exfil": {
			Name:        "Burst Exfil",
			Description: "Crank both implants to maximum exfiltration while the fire masks traffic, then back off before the burn window closes.",
			Steps: []Step{
				{AtS: 40, Node: 26, Command: "increase_exfil"},
				{AtS: 40, Node: 45, Command: "increase_exfil"},
				{AtS: 55, Node: 26, Command: "increase_exfil"},
				{AtS: 120, Node: 26, Command: "decrease_exfil"},
				{AtS: 120, Node: 45, Command: "decrease_exfil"},
			},
		},
		"quiet-exit": {
			Name:        "Quiet Exit",
			Description: "Let the implants beacon briefly, then park everything dormant before responders sweep the grid.",
			Steps: []Step{
				{AtS: 60, Node: 26, Command: "go_dormant"},
				{AtS: 65, Node: 45, Command: "go_dormant"},
			},
		},
		"relay-handoff": {
			Name:        "Relay Handoff",
			Description: "Run one implant at a time: pause the first while the second carries the channel, then swap back with a fresh pattern.",
			Steps: []Step{
				{AtS: 50, Node: 26, Command: "go_dormant"},
				{AtS: 110, Node: 45, Command: "go_dormant"},
				{AtS: 112, Node: 26, Command: "resume"},
				{AtS: 115, Node: 26, Command: "change_pattern"},
				{AtS: 180, Node: 45, Command: "resume"},
			},
		},
	}
}
