package cta2045

import "fmt"

// OperationalState is the SGD operational state reported by the appliance
// through the UCM in response to an operational state query.
type OperationalState int

const (
	StateNormal OperationalState = iota
	StateHeightened
	StateGrid
	StateCurtailed
)

func (s OperationalState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateHeightened:
		return "heightened"
	case StateGrid:
		return "grid"
	case StateCurtailed:
		return "curtailed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// CommodityCode identifies the physical quantity of a commodity reading.
type CommodityCode byte

const (
	// CommodityElectricityConsumed carries the instantaneous import rate in watts.
	CommodityElectricityConsumed CommodityCode = 0
	// CommodityTotalEnergyCapacity carries the rated cumulative import energy in watt-hours.
	CommodityTotalEnergyCapacity CommodityCode = 6
	// CommodityPresentEnergyCapacity carries the cumulative import energy in watt-hours.
	CommodityPresentEnergyCapacity CommodityCode = 7
)

// CommodityReading is one coded (rate, cumulative) pair from a commodity
// response. Readings are transient: they are folded into higher-level state
// by the consumer and not retained by the client.
type CommodityReading struct {
	Code       CommodityCode
	Rate       uint32
	Cumulative uint64
}

// ResponseCode is the link/application level outcome of a request.
type ResponseCode int

const (
	ResponseNone ResponseCode = iota
	ResponseLinkAck
	ResponseLinkNack
	ResponseAppAck
	ResponseAppNack
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseNone:
		return "none"
	case ResponseLinkAck:
		return "link_ack"
	case ResponseLinkNack:
		return "link_nack"
	case ResponseAppAck:
		return "app_ack"
	case ResponseAppNack:
		return "app_nack"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// OutsideCommStatus reports the state of the connection between the UCM and
// the utility, announced to the appliance so it can adjust autonomous behavior.
type OutsideCommStatus byte

const (
	OutsideCommNotFound OutsideCommStatus = 0
	OutsideCommFound    OutsideCommStatus = 1
	OutsideCommPoor     OutsideCommStatus = 2
)

// DeviceInfo is the static identity block returned by a device information query.
type DeviceInfo struct {
	VendorID        uint16
	DeviceType      uint16
	DeviceRevision  uint16
	FirmwareVersion string
	ModelNumber     string
	SerialNumber    string
}
