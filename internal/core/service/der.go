package service

import (
	"sync"

	"ewh2grid/internal/core/domain"
	"ewh2grid/pkg/cta2045"
)

// Device-class constants for a residential electric storage water heater.
const (
	// RatedImportPowerWatt is the nameplate element rating.
	RatedImportPowerWatt = 4500
	// IdleLossesWatt is the observed ambient standby loss.
	IdleLossesWatt = 100
	// NominalLineVoltage is the assumed RMS line voltage used to derive real
	// power from the current transducer; it is not measured.
	NominalLineVoltage = 240
)

// PropertyStore holds the DER properties shared between the controller, the
// optimizer-facing surfaces and telemetry. Rated import power, idle losses and
// import ramp are fixed at construction; everything else is runtime state.
// Reads and writes come from the controller actor and the HTTP/MQTT surfaces,
// so access is guarded.
type PropertyStore struct {
	mu    sync.RWMutex
	props domain.DERProperties
}

func NewPropertyStore(ratedImportPower, idleLosses, importRamp uint32) *PropertyStore {
	return &PropertyStore{
		props: domain.DERProperties{
			RatedImportPower: ratedImportPower,
			IdleLosses:       idleLosses,
			ImportRamp:       importRamp,
		},
	}
}

// Snapshot returns a consistent copy of every property.
func (s *PropertyStore) Snapshot() domain.DERProperties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props
}

func (s *PropertyStore) ImportWatts() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.ImportWatts
}

func (s *PropertyStore) SetImportWatts(w uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.ImportWatts = w
}

func (s *PropertyStore) ImportPower() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.ImportPower
}

func (s *PropertyStore) SetImportPower(w uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.ImportPower = w
}

func (s *PropertyStore) SetImportEnergy(wh uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.ImportEnergy = wh
}

func (s *PropertyStore) SetRatedImportEnergy(wh uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.RatedImportEnergy = wh
}

func (s *PropertyStore) ExportWatts() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.ExportWatts
}

func (s *PropertyStore) SetExportWatts(w uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.ExportWatts = w
}

// SetExportEnergy exists for the export overwrite hook: a water heater cannot
// export, so the hook pins this to zero no matter what was stored before.
func (s *PropertyStore) SetExportEnergy(wh uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props.ExportEnergy = wh
}

// FoldCommodityReadings applies a batch of commodity readings using the fixed
// code mapping: electricity consumed updates the measured import rate, total
// capacity the rated cumulative energy, present capacity the cumulative
// energy. Unknown codes are ignored.
func (s *PropertyStore) FoldCommodityReadings(readings []cta2045.CommodityReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range readings {
		switch r.Code {
		case cta2045.CommodityElectricityConsumed:
			s.props.ImportPower = r.Rate
		case cta2045.CommodityTotalEnergyCapacity:
			s.props.RatedImportEnergy = r.Cumulative
		case cta2045.CommodityPresentEnergyCapacity:
			s.props.ImportEnergy = r.Cumulative
		}
	}
}

// RealImportPower approximates the instantaneous real power draw from the
// transducer current and the nominal line voltage. Telemetry only; control
// decisions never read it.
func RealImportPower(amps float64) uint32 {
	if amps <= 0 {
		return 0
	}
	return uint32(amps * NominalLineVoltage)
}
