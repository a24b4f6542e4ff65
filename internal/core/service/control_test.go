package service

import (
	"testing"
	"time"

	"ewh2grid/internal/core/domain"
	"ewh2grid/pkg/cta2045"

	"github.com/stretchr/testify/assert"
)

func tickAt(min, sec int) domain.TickInput {
	return domain.TickInput{
		Now:              time.Date(2024, 3, 11, 9, min, sec, 0, time.UTC),
		LastLoggedMinute: -1,
		HeartbeatMinutes: 15,
	}
}

func TestPlanTickQueriesOnEvenSeconds(t *testing.T) {
	planner := WallClockPlanner{}
	for sec := 0; sec < 60; sec++ {
		d := planner.PlanTick(tickAt(7, sec))
		assert.Equal(t, sec%2 == 0, d.QueryProperties, "second %d", sec)
	}
}

func TestPlanTickHeartbeatWindows(t *testing.T) {
	planner := WallClockPlanner{}
	for min := 0; min < 60; min++ {
		d := planner.PlanTick(tickAt(min, 0))
		expected := min == 0 || min == 15 || min == 30 || min == 45
		assert.Equal(t, expected, d.Heartbeat, "minute %d", min)
	}
	// only fires inside the first second of the window
	assert.False(t, planner.PlanTick(tickAt(15, 1)).Heartbeat)
	assert.False(t, planner.PlanTick(tickAt(15, 30)).Heartbeat)
}

func TestPlanTickLogsOncePerMinute(t *testing.T) {
	planner := WallClockPlanner{}

	in := tickAt(7, 0)
	assert.True(t, planner.PlanTick(in).WriteLog)

	// second invocation within the same minute after the mark advanced
	in.LastLoggedMinute = 7
	assert.False(t, planner.PlanTick(in).WriteLog)

	// off-second ticks never log
	in = tickAt(8, 30)
	assert.False(t, planner.PlanTick(in).WriteLog)
}

func TestPlanTickImportAction(t *testing.T) {
	planner := WallClockPlanner{}

	in := tickAt(3, 1)
	in.ImportWatts = 4500
	in.ImportPower = 0
	in.DeviceState = cta2045.StateNormal
	assert.Equal(t, domain.PowerImport, planner.PlanTick(in).Power)

	// heightened state suppresses the load-up
	in.DeviceState = cta2045.StateHeightened
	assert.Equal(t, domain.PowerNone, planner.PlanTick(in).Power)

	// already flowing: nothing to do
	in.DeviceState = cta2045.StateNormal
	in.ImportPower = 4400
	assert.Equal(t, domain.PowerNone, planner.PlanTick(in).Power)
}

func TestPlanTickIdleAction(t *testing.T) {
	planner := WallClockPlanner{}

	in := tickAt(3, 1)
	in.ImportWatts = 0
	in.ImportPower = 4400
	in.DeviceState = cta2045.StateNormal
	assert.Equal(t, domain.PowerIdle, planner.PlanTick(in).Power)

	// a device already curtailed or grid-constrained is left alone
	in.DeviceState = cta2045.StateGrid
	assert.Equal(t, domain.PowerNone, planner.PlanTick(in).Power)
	in.DeviceState = cta2045.StateCurtailed
	assert.Equal(t, domain.PowerNone, planner.PlanTick(in).Power)
}

func TestPlanTickPowerActionsAreExclusive(t *testing.T) {
	planner := WallClockPlanner{}
	for _, state := range []cta2045.OperationalState{
		cta2045.StateNormal, cta2045.StateHeightened, cta2045.StateGrid, cta2045.StateCurtailed,
	} {
		for _, watts := range []uint32{0, 4500} {
			for _, power := range []uint32{0, 4400} {
				in := tickAt(5, 2)
				in.ImportWatts = watts
				in.ImportPower = power
				in.DeviceState = state
				d := planner.PlanTick(in)
				assert.Contains(t, []domain.PowerAction{domain.PowerNone, domain.PowerImport, domain.PowerIdle}, d.Power)
				if watts > 0 && power > 0 {
					assert.Equal(t, domain.PowerNone, d.Power, "satisfied request must not trigger an action")
				}
			}
		}
	}
}
