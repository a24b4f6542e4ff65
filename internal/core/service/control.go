package service

import (
	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/core/port"
	"ewh2grid/pkg/cta2045"
)

// WallClockPlanner implements the per-tick decision table. Scheduling is
// wall-clock-absolute: a tick that lands outside a window simply skips the
// action for that cycle, there is no catch-up.
type WallClockPlanner struct {
}

func (p WallClockPlanner) PlanTick(in domain.TickInput) domain.TickDecision {
	sec := in.Now.Second()
	min := in.Now.Minute()

	var out domain.TickDecision

	if sec%2 == 0 {
		out.QueryProperties = true
	}
	if in.HeartbeatMinutes > 0 && uint(min)%in.HeartbeatMinutes == 0 && sec < 1 {
		out.Heartbeat = true
	}
	if sec == 0 && min != in.LastLoggedMinute {
		out.WriteLog = true
	}

	// Power reconciliation: requested import with nothing flowing means the
	// appliance should be freed to consume; measured flow with no request
	// means consumption should be suppressed. The release guard is a
	// conjunction: a device already curtailed or grid-constrained is left
	// alone rather than re-shed every tick.
	if in.ImportWatts > 0 && in.ImportPower == 0 {
		if in.DeviceState != cta2045.StateHeightened {
			out.Power = domain.PowerImport
		}
	} else if in.ImportPower > 0 && in.ImportWatts == 0 {
		if in.DeviceState != cta2045.StateGrid && in.DeviceState != cta2045.StateCurtailed {
			out.Power = domain.PowerIdle
		}
	}

	return out
}

// ensure interface compliance
var _ port.TickPlanner = (*WallClockPlanner)(nil)
