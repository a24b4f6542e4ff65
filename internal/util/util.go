package util

import (
	"ewh2grid/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		UCM: config.UCMConfig{
			SerialPort:           "/dev/null",
			BaudRate:             19200,
			HeartbeatMinutes:     15,
			CommandTimeoutMillis: 500,
		},
		Meter: config.MeterConfig{},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "ewh2grid",
		},
		DER: config.DERConfig{
			RatedImportRamp: 5,
		},
		Datalog: config.DatalogConfig{
			IntervalMinutes: 1,
		},
		Port: 8080,
	}
}
