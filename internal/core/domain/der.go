package domain

import (
	"time"

	"ewh2grid/pkg/cta2045"
)

// CommandedState is the controller's locally cached "last commanded" tag. It
// is deliberately distinct from the device-reported operational state: the two
// can legitimately diverge until the next property synchronization and must
// never be unified.
type CommandedState int

const (
	CommandedNone CommandedState = iota
	CommandedLoadUp
	CommandedCriticalPeak
	CommandedGridEmergency
)

func (s CommandedState) String() string {
	switch s {
	case CommandedNone:
		return "none"
	case CommandedLoadUp:
		return "load_up"
	case CommandedCriticalPeak:
		return "critical_peak"
	case CommandedGridEmergency:
		return "grid_emergency"
	}
	return "unknown"
}

// DERProperties is a point-in-time copy of the DER property store. Watts are
// requested control targets, Power values are measured, Energy values are
// cumulative watt-hours.
type DERProperties struct {
	ImportWatts       uint32
	ImportPower       uint32
	ImportEnergy      uint64
	RatedImportPower  uint32
	RatedImportEnergy uint64
	ImportRamp        uint32
	ExportWatts       uint32
	ExportPower       uint32
	ExportEnergy      uint64
	IdleLosses        uint32
}

// PowerAction is the single power reconciliation step a tick may take.
type PowerAction int

const (
	PowerNone PowerAction = iota
	// PowerImport lets the appliance consume freely (load-up).
	PowerImport
	// PowerIdle actively suppresses consumption (shed).
	PowerIdle
)

// TickInput is everything the scheduler decision table reads: the injected
// wall clock, the schedule marks, the requested/measured power pair and the
// device-reported state.
type TickInput struct {
	Now              time.Time
	LastLoggedMinute int
	HeartbeatMinutes uint
	ImportWatts      uint32
	ImportPower      uint32
	DeviceState      cta2045.OperationalState
}

// TickDecision is the fan-out for one tick. Flags are independent; Power is
// exclusive (never both a curtail and a release action in the same tick).
type TickDecision struct {
	QueryProperties bool
	Heartbeat       bool
	WriteLog        bool
	Power           PowerAction
}
