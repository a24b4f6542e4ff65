// Package ctmeter reads a current transducer attached to a Modbus ADC, used
// to approximate the appliance's real power draw.
package ctmeter

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// Reader exposes the instantaneous RMS current on the monitored conductor.
type Reader interface {
	Open() error
	Close() error
	Current() (float64, error)
}

// ModbusReader samples one ADC input register and scales raw counts to amps.
type ModbusReader struct {
	client       *modbus.ModbusClient
	channel      uint16
	ampsPerCount float64
}

// CreateModbusReader builds a reader for the given Modbus URL (e.g.
// rtu:///dev/ttyUSB1 or tcp://10.0.0.5:502), unit id and ADC channel.
func CreateModbusReader(url string, unitID uint8, channel uint16, ampsPerCount float64, timeout time.Duration) (*ModbusReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ctmeter: client for %s: %w", url, err)
	}
	if err := client.SetUnitId(unitID); err != nil {
		return nil, err
	}
	return &ModbusReader{
		client:       client,
		channel:      channel,
		ampsPerCount: ampsPerCount,
	}, nil
}

func (r *ModbusReader) Open() error {
	return r.client.Open()
}

func (r *ModbusReader) Close() error {
	return r.client.Close()
}

func (r *ModbusReader) Current() (float64, error) {
	raw, err := r.client.ReadRegister(r.channel, modbus.INPUT_REGISTER)
	if err != nil {
		return 0, fmt.Errorf("ctmeter: read channel %d: %w", r.channel, err)
	}
	return float64(raw) * r.ampsPerCount, nil
}

// ensure interface compliance
var _ Reader = (*ModbusReader)(nil)
