package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	UCM      UCMConfig     `mapstructure:"ucm"`
	Meter    MeterConfig   `mapstructure:"meter"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	DER      DERConfig     `mapstructure:"der"`
	Datalog  DatalogConfig `mapstructure:"datalog"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

// UCMConfig describes the serial link to the utility communication module.
type UCMConfig struct {
	SerialPort           string `mapstructure:"serial_port"`
	BaudRate             uint   `mapstructure:"baud_rate"`
	HeartbeatMinutes     uint   `mapstructure:"heartbeat_minutes"`
	CommandTimeoutMillis uint32 `mapstructure:"command_timeout_millis"`
}

// MeterConfig describes the Modbus current transducer. An empty URL disables
// the meter; real import power then reads as zero.
type MeterConfig struct {
	URL          string  `mapstructure:"url"`
	UnitId       uint    `mapstructure:"unit_id"`
	Channel      uint    `mapstructure:"channel"`
	AmpsPerCount float64 `mapstructure:"amps_per_count"`
}

// DERConfig holds the configured appliance ratings applied at startup.
type DERConfig struct {
	RatedImportRamp uint32 `mapstructure:"rated_import_ramp"`
}

type DatalogConfig struct {
	Path            string `mapstructure:"path"`
	IntervalMinutes uint   `mapstructure:"interval_minutes"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate applies the bound checks that make a malformed configuration a
// construction-time error instead of a runtime surprise.
func (cfg *Config) Validate() error {
	if cfg.UCM.SerialPort == "" {
		return errors.New("config param ucm.serial_port is required")
	}
	if cfg.UCM.HeartbeatMinutes < 1 {
		return errors.New("config param ucm.heartbeat_minutes should be >= 1")
	}
	if cfg.UCM.CommandTimeoutMillis < 100 {
		return errors.New("config param ucm.command_timeout_millis should be >= 100ms")
	}
	if cfg.DER.RatedImportRamp == 0 {
		return errors.New("config param der.rated_import_ramp should be > 0")
	}
	if cfg.Datalog.Path == "" {
		return errors.New("config param datalog.path is required")
	}
	if cfg.Datalog.IntervalMinutes < 1 {
		return errors.New("config param datalog.interval_minutes should be >= 1")
	}
	if cfg.Meter.URL != "" && cfg.Meter.AmpsPerCount <= 0 {
		return errors.New("config param meter.amps_per_count should be > 0")
	}
	return nil
}
