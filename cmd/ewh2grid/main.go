package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "ewh2grid/internal/adapter/actor"
	"ewh2grid/internal/config"
	"ewh2grid/internal/core/actor"
	"ewh2grid/internal/datalog"
	"ewh2grid/internal/server"
	"ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/cta2045"
	"ewh2grid/pkg/ctmeter"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init UCM actor provider
	ucmProv, err := ucmActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	// init meter actor provider
	meterProv, err := meterActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	datalogWriter, err := datalog.NewWriter(cfg.Datalog)
	if err != nil {
		panic(err)
	}
	defer datalogWriter.Close()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, ucmProv, meterProv, mqttActorProvider(cfg, logger), datalogWriter, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => EWH2GRID_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("EWH2GRID_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("ewh2grid")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func ucmActorProvider(cfg *config.Config, logger *zap.Logger) (actor.UCMActorProvider, error) {

	client, err := cta2045.CreateSerialClient(cfg.UCM.SerialPort, cfg.UCM.BaudRate)
	if err != nil {
		return nil, err
	}

	commandTimeout := time.Duration(cfg.UCM.CommandTimeoutMillis) * time.Millisecond

	return func() *adactor.UCMActor {
		return adactor.NewUCMActor(client, commandTimeout, logger)
	}, nil
}

func meterActorProvider(cfg *config.Config, logger *zap.Logger) (actor.MeterActorProvider, error) {

	// a meter is optional. without one, real import power reads as zero
	var reader ctmeter.Reader
	if cfg.Meter.URL != "" {
		r, err := ctmeter.CreateModbusReader(cfg.Meter.URL, uint8(cfg.Meter.UnitId),
			uint16(cfg.Meter.Channel), cfg.Meter.AmpsPerCount, 1*time.Second)
		if err != nil {
			return nil, err
		}
		reader = r
	}

	return func() *adactor.MeterActor {
		return adactor.NewMeterActor(reader, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(stream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, stream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "ewh2grid")
	viper.SetDefault("ucm.baud_rate", 19200)
	viper.SetDefault("ucm.heartbeat_minutes", 15)
	viper.SetDefault("ucm.command_timeout_millis", 3000)
	viper.SetDefault("der.rated_import_ramp", 5)
	viper.SetDefault("datalog.interval_minutes", 1)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
