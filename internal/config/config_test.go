package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	var cfg Config
	cfg.UCM.SerialPort = "/dev/ttyUSB0"
	cfg.UCM.HeartbeatMinutes = 15
	cfg.UCM.CommandTimeoutMillis = 2000
	cfg.DER.RatedImportRamp = 10
	cfg.Datalog.Path = "/tmp/ewh_data.log"
	cfg.Datalog.IntervalMinutes = 1
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingRequiredKeys(t *testing.T) {
	cfg := validConfig()
	cfg.UCM.SerialPort = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UCM.HeartbeatMinutes = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.UCM.CommandTimeoutMillis = 50
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.DER.RatedImportRamp = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Datalog.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateMeterScaleOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Meter.URL = "rtu:///dev/ttyUSB1"
	cfg.Meter.AmpsPerCount = 0
	assert.Error(t, cfg.Validate())

	cfg.Meter.AmpsPerCount = 0.05
	assert.NoError(t, cfg.Validate())

	cfg.Meter.URL = ""
	cfg.Meter.AmpsPerCount = 0
	assert.NoError(t, cfg.Validate(), "disabled meter ignores scale")
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("EWH2Grid")
	assert.NoError(t, err)
	assert.Equal(t, "ewh2grid", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(t, err)
}
