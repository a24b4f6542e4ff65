package service

import (
	"testing"

	"ewh2grid/pkg/cta2045"

	"github.com/stretchr/testify/assert"
)

func TestPropertyStoreConstructionDefaults(t *testing.T) {
	store := NewPropertyStore(RatedImportPowerWatt, IdleLossesWatt, 10)
	props := store.Snapshot()
	assert.Equal(t, uint32(4500), props.RatedImportPower)
	assert.Equal(t, uint32(100), props.IdleLosses)
	assert.Equal(t, uint32(10), props.ImportRamp)
	assert.Zero(t, props.ExportEnergy)
}

func TestFoldCommodityReadings(t *testing.T) {
	store := NewPropertyStore(RatedImportPowerWatt, IdleLossesWatt, 10)

	store.FoldCommodityReadings([]cta2045.CommodityReading{
		{Code: cta2045.CommodityElectricityConsumed, Rate: 500},
		{Code: cta2045.CommodityTotalEnergyCapacity, Cumulative: 12000},
		{Code: cta2045.CommodityPresentEnergyCapacity, Cumulative: 3400},
	})

	props := store.Snapshot()
	assert.Equal(t, uint32(500), props.ImportPower)
	assert.Equal(t, uint64(12000), props.RatedImportEnergy)
	assert.Equal(t, uint64(3400), props.ImportEnergy)
}

func TestFoldCommodityReadingsIgnoresUnknownCodes(t *testing.T) {
	store := NewPropertyStore(RatedImportPowerWatt, IdleLossesWatt, 10)
	store.FoldCommodityReadings([]cta2045.CommodityReading{
		{Code: cta2045.CommodityElectricityConsumed, Rate: 500},
		{Code: cta2045.CommodityTotalEnergyCapacity, Cumulative: 12000},
		{Code: cta2045.CommodityPresentEnergyCapacity, Cumulative: 3400},
	})

	store.FoldCommodityReadings([]cta2045.CommodityReading{
		{Code: 99, Rate: 9999, Cumulative: 9999},
	})

	props := store.Snapshot()
	assert.Equal(t, uint32(500), props.ImportPower)
	assert.Equal(t, uint64(12000), props.RatedImportEnergy)
	assert.Equal(t, uint64(3400), props.ImportEnergy)
}

func TestSetExportEnergyPinsToZero(t *testing.T) {
	store := NewPropertyStore(RatedImportPowerWatt, IdleLossesWatt, 10)
	store.SetExportEnergy(777)
	store.SetExportEnergy(0)
	assert.Zero(t, store.Snapshot().ExportEnergy)
}

func TestRealImportPower(t *testing.T) {
	assert.Equal(t, uint32(2400), RealImportPower(10))
	assert.Equal(t, uint32(0), RealImportPower(0))
	assert.Equal(t, uint32(0), RealImportPower(-3))
}
