package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an inbound MQTT command to a controller
// request: DR event payloads on the dr command topic, or the import watts
// target on the number set topic.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	if cmd.Command == mqtt.COMMAND_TYPE_DR {
		switch cmd.Payload {
		case "shed":
			return domain.ShedRequest{}, nil
		case "end_shed":
			return domain.EndCurtailmentRequest{}, nil
		case "load_up":
			return domain.LoadUpRequest{}, nil
		case "critical_peak":
			return domain.CriticalPeakRequest{}, nil
		case "grid_emergency":
			return domain.GridEmergencyRequest{}, nil
		}
		return nil, nil
	}
	if cmd.Command == mqtt.COMMAND_TYPE_NUMBER && cmd.DeviceId == domain.INPUT_NUMBER_ID_IMPORT_WATTS {
		value, err := strconv.ParseUint(cmd.Payload, 10, 32)
		if err != nil {
			return nil, err
		}
		return domain.SetImportTargetRequest{
			Watts: uint32(value),
		}, nil
	}
	return nil, nil
}
