package domain

import (
	"time"

	"ewh2grid/pkg/cta2045"
)

const (
	ACTOR_ID_MASTER     = "master"
	ACTOR_ID_UCM        = "ucm"
	ACTOR_ID_METER      = "meter"
	ACTOR_ID_MQTT       = "mqtt"
	ACTOR_ID_CONTROLLER = "controller"
)

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// BasicCommand names one of the protocol-level DR commands the UCM can relay.
type BasicCommand int

const (
	CommandShed BasicCommand = iota
	CommandEndShed
	CommandLoadUp
	CommandCriticalPeakEvent
	CommandGridEmergency
)

func (c BasicCommand) String() string {
	switch c {
	case CommandShed:
		return "shed"
	case CommandEndShed:
		return "end_shed"
	case CommandLoadUp:
		return "load_up"
	case CommandCriticalPeakEvent:
		return "critical_peak_event"
	case CommandGridEmergency:
		return "grid_emergency"
	}
	return "unknown"
}

// SendBasicCommandRequest relays one basic DR command to the appliance.
// Duration zero means "until explicitly ended".
type SendBasicCommandRequest struct {
	ActorRequestMixIn
	Command  BasicCommand
	Duration time.Duration
}

type SendBasicCommandResponse struct {
	ActorResponseMixIn
	Code cta2045.ResponseCode
}

// OutsideCommStatusRequest announces utility connectivity to the appliance.
type OutsideCommStatusRequest struct {
	ActorRequestMixIn
	Status cta2045.OutsideCommStatus
}

type OutsideCommStatusResponse struct {
	ActorResponseMixIn
	Code cta2045.ResponseCode
}

// HandshakeRequest runs the startup capability queries against the device:
// supported data-link messages, max payload, supported intermediate messages
// and device information. Individual failures are reported, not fatal.
type HandshakeRequest struct {
	ActorRequestMixIn
}

type HandshakeResponse struct {
	ActorResponseMixIn
	Failed []string
	Info   *cta2045.DeviceInfo
}

type GetCommodityDataRequest struct {
	ActorRequestMixIn
}

type GetCommodityDataResponse struct {
	ActorResponseMixIn
	Readings []cta2045.CommodityReading
}

type QueryOpStateRequest struct {
	ActorRequestMixIn
}

type QueryOpStateResponse struct {
	ActorResponseMixIn
	State cta2045.OperationalState
}

type GetCurrentRequest struct {
	ActorRequestMixIn
}

type GetCurrentResponse struct {
	ActorResponseMixIn
	Amps float64
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Event  SensorUpdateEvent
	Retain bool
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}
