package port

import (
	"ewh2grid/internal/core/domain"
)

// TickPlanner maps one scheduler tick to the set of actions the controller
// should take. Implementations must be pure so tests can drive the schedule
// with a simulated clock.
type TickPlanner interface {
	PlanTick(in domain.TickInput) domain.TickDecision
}
