package cta2045

import (
	"errors"
	"time"
)

// ErrResultTimeout is returned by Future.Result when the device does not
// answer within the given window.
var ErrResultTimeout = errors.New("cta2045: timed out waiting for device response")

// Future is the pending outcome of an asynchronous request. Commands are
// written to the UCM immediately; the matching response resolves the future
// from the reader goroutine. Callers that do not care about the outcome may
// simply drop the future.
type Future struct {
	ch chan futureResult
}

type futureResult struct {
	code ResponseCode
	err  error
}

func newFuture() *Future {
	return &Future{ch: make(chan futureResult, 1)}
}

func (f *Future) resolve(code ResponseCode, err error) {
	select {
	case f.ch <- futureResult{code: code, err: err}:
	default:
	}
}

// Result blocks until the response arrives or the timeout elapses. Every wait
// is bounded: a device that never answers yields ErrResultTimeout instead of
// stalling the caller forever.
func (f *Future) Result(timeout time.Duration) (ResponseCode, error) {
	select {
	case r := <-f.ch:
		return r.code, r.err
	case <-time.After(timeout):
		return ResponseNone, ErrResultTimeout
	}
}

func resolvedFuture(code ResponseCode) *Future {
	f := newFuture()
	f.resolve(code, nil)
	return f
}

func failedFuture(err error) *Future {
	f := newFuture()
	f.resolve(ResponseNone, err)
	return f
}

// Client is the UCM device interface. A duration of zero on any basic DR
// command means "indefinite, until explicitly ended", not "instantaneous".
//
// CommodityData, OpState and GetDeviceInfo expose the client's last-known
// cache; they never touch the wire.
type Client interface {
	Start() error
	Stop() error

	BasicShed(duration time.Duration) *Future
	BasicEndShed(duration time.Duration) *Future
	BasicLoadUp(duration time.Duration) *Future
	BasicCriticalPeakEvent(duration time.Duration) *Future
	BasicGridEmergency(duration time.Duration) *Future
	BasicOutsideCommConnectionStatus(status OutsideCommStatus) *Future
	BasicQueryOperationalState() *Future

	QuerySupportDataLinkMessages() *Future
	QueryMaxPayload() *Future
	QuerySupportIntermediateMessages() *Future
	IntermediateGetDeviceInformation() *Future
	IntermediateGetCommodity() *Future

	CommodityData() []CommodityReading
	OpState() OperationalState
	GetDeviceInfo() *DeviceInfo
}
