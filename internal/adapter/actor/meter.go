package actor

import (
	"fmt"
	"time"

	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/ctmeter"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	METER_ACTOR_ID = "meter"
)

// MeterActor owns the current-transducer reader. A nil reader means no
// meter is configured and every sample is zero amps.
type MeterActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   ctmeter.Reader
	logger   *zap.Logger
}

func NewMeterActor(reader ctmeter.Reader, logger *zap.Logger) *MeterActor {
	act := &MeterActor{
		reader:   reader,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("meter", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		if state.reader != nil {
			if err := state.reader.Open(); err != nil {
				panic(err)
			}
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		if state.reader != nil {
			_ = state.reader.Close()
		}
	default:
		state.logger.Debug("meter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      METER_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetCurrentRequest:
		state.logger.Debug("meter@default: GetCurrentRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getCurrent),
			mapTaskResult[domain.GetCurrentResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetCurrentResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingMeter)
	case *actor.Stopping:
		if state.reader != nil {
			_ = state.reader.Close()
		}
	default:
		state.logger.Debug("meter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MeterActor) WaitingMeter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("meter@WaitingMeter backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		if state.reader != nil {
			_ = state.reader.Close()
		}
	default:
		state.logger.Debug("meter@WaitingMeter stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *MeterActor) getCurrent() (*domain.GetCurrentResponse, error) {
	if a.reader == nil {
		return &domain.GetCurrentResponse{Amps: 0}, nil
	}
	amps, err := a.reader.Current()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetCurrentResponse{
		Amps: amps,
	}, nil
}
