package domain

import (
	"fmt"

	"ewh2grid/pkg/cta2045"
)

// ControlRequest

type ControlRequest interface {
	ActorRequest
	ControlCommand() string
}

type ControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r ControlRequestMixIn) ControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// Operator/utility triggered curtailment transitions

type CriticalPeakRequest struct {
	ControlRequestMixIn
}

type LoadUpRequest struct {
	ControlRequestMixIn
}

type GridEmergencyRequest struct {
	ControlRequestMixIn
}

type ShedRequest struct {
	ControlRequestMixIn
}

type EndCurtailmentRequest struct {
	ControlRequestMixIn
}

type ControlResponse struct {
	ActorResponseMixIn
	Commanded CommandedState
}

// Optimizer-facing power targets

type SetImportTargetRequest struct {
	ControlRequestMixIn
	Watts uint32
}

type SetExportTargetRequest struct {
	ControlRequestMixIn
	Watts uint32
}

type SetTargetResponse struct {
	ActorResponseMixIn
}

// Snapshot surface

type GetSnapshotRequest struct {
	ControlRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Properties      DERProperties
	DeviceState     cta2045.OperationalState
	Commanded       CommandedState
	RealImportPower uint32
}

// ensure interface compliance
var _ ControlRequest = (*CriticalPeakRequest)(nil)
var _ ControlRequest = (*SetImportTargetRequest)(nil)
