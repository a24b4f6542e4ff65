package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "ewh2grid/internal/core/domain"
	"ewh2grid/pkg/cta2045"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_DEVICE_OP_STATE      = "device_op_state"
	SENSOR_ID_COMMANDED_STATE      = "commanded_state"
	SENSOR_ID_IMPORT_POWER         = "import_power"
	SENSOR_ID_IMPORT_ENERGY        = "cumulative_import_energy"
	SENSOR_ID_RATED_IMPORT_POWER   = "rated_import_power"
	SENSOR_ID_RATED_IMPORT_ENERGY  = "rated_import_energy"
	SENSOR_ID_REAL_IMPORT_POWER    = "real_import_power"
	SENSOR_ID_EXPORT_POWER         = "export_power"
	SENSOR_ID_EXPORT_ENERGY        = "cumulative_export_energy"
	SENSOR_ID_WATER_HEATER_CURRENT = "water_heater_current"
)

type BridgeInfo struct {
	Id      string
	Name    string
	Version string
}

func Bridge(baseTopic string) BridgeInfo {
	return BridgeInfo{
		Id:      fmt.Sprintf("ewh2grid_bridge_%s", md5HashShort(baseTopic)),
		Name:    fmt.Sprintf("ewh2grid %s", md5HashShort(baseTopic)),
		Version: versioninfo.Short(),
	}
}

func DERPropertiesToUpdateEvents(props DERProperties) []any {
	var events []any

	// Device-reported import power rate
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_IMPORT_POWER,
		},
		Value: float64(props.ImportPower),
	})
	// Cumulative import energy
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_IMPORT_ENERGY,
		},
		Value: float64(props.ImportEnergy),
	})
	// Rated import power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_RATED_IMPORT_POWER,
		},
		Value: float64(props.RatedImportPower),
	})
	// Rated cumulative import energy
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_RATED_IMPORT_ENERGY,
		},
		Value: float64(props.RatedImportEnergy),
	})
	// Export power and energy, pinned at zero for a pure load
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EXPORT_POWER,
		},
		Value: float64(props.ExportPower),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EXPORT_ENERGY,
		},
		Value: float64(props.ExportEnergy),
	})

	return events
}

func RealImportPowerToUpdateEvents(watts uint32, amps float64) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_REAL_IMPORT_POWER,
		},
		Value: float64(watts),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_WATER_HEATER_CURRENT,
		},
		Value:    amps,
		Decimals: 2,
	})

	return events
}

func DeviceStateToUpdateEvents(state cta2045.OperationalState) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_DEVICE_OP_STATE,
		},
		Value: state.String(),
	})

	return events
}

func CommandedStateToUpdateEvents(state CommandedState) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_COMMANDED_STATE,
		},
		Value: state.String(),
	})

	return events
}

func ImportTargetUpdateEvents(watts uint32) []any {
	var events []any
	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_IMPORT_WATTS,
		},
		Value: float64(watts),
	})
	return events
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[0:8]
}
