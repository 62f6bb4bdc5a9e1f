package sim

import "firec2-sim/internal/telemetry"

// AttackEventWriter handles backdoor lifecycle events.
type AttackEventWriter interface {
	WriteAttackEvent(telemetry.AttackEventRow) error
}

// Optional: writers may support batch mode for attack events.
type batchAttackEventWriter interface {
	WriteAttackEvents([]telemetry.AttackEventRow) error
}
