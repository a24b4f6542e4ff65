package actor

import (
	"fmt"
	"time"

	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/cta2045"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	UCM_ACTOR_ID = "ucm"
)

// UCMActor owns the CTA-2045 device client. Every wire exchange runs as a
// background task bounded by the configured command timeout, while the actor
// stacks into WaitingDevice and stashes whatever else arrives.
type UCMActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   cta2045.Client
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewUCMActor(client cta2045.Client, commandTimeout time.Duration, logger *zap.Logger) *UCMActor {
	act := &UCMActor{
		client:   client,
		timeout:  commandTimeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("ucm", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *UCMActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *UCMActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("ucm@starting started")
		if err := state.client.Start(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		_ = state.client.Stop()
	default:
		state.logger.Debug("ucm@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *UCMActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("ucm@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      UCM_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.SendBasicCommandRequest:
		state.logger.Debug("ucm@default: SendBasicCommandRequest", zap.String("command", msg.Command.String()))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SendBasicCommandResponse, error) {
			return state.sendBasicCommand(msg.Command, msg.Duration)
		}),
			mapTaskResult[domain.SendBasicCommandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SendBasicCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(1)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.OutsideCommStatusRequest:
		state.logger.Debug("ucm@default: OutsideCommStatusRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.OutsideCommStatusResponse, error) {
			return state.sendOutsideCommStatus(msg.Status)
		}),
			mapTaskResult[domain.OutsideCommStatusResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.OutsideCommStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(1)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.HandshakeRequest:
		state.logger.Debug("ucm@default: HandshakeRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, state.runHandshake),
			mapTaskResult[domain.HandshakeResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.HandshakeResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(4)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.GetCommodityDataRequest:
		state.logger.Debug("ucm@default: GetCommodityDataRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getCommodityData),
			mapTaskResult[domain.GetCommodityDataResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetCommodityDataResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(1)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.QueryOpStateRequest:
		state.logger.Debug("ucm@default: QueryOpStateRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.queryOpState),
			mapTaskResult[domain.QueryOpStateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.QueryOpStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(1)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case *actor.Stopping:
		_ = state.client.Stop()
	default:
		state.logger.Debug("ucm@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *UCMActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("ucm@WaitingDevice backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		_ = state.client.Stop()
	default:
		state.logger.Debug("ucm@WaitingDevice stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// taskTimeout bounds a background task that performs n sequential wire
// exchanges, with headroom for scheduling.
func (state *UCMActor) taskTimeout(n int) time.Duration {
	return time.Duration(n)*state.timeout + 500*time.Millisecond
}

func (a *UCMActor) sendBasicCommand(command domain.BasicCommand, duration time.Duration) (*domain.SendBasicCommandResponse, error) {
	var future *cta2045.Future
	switch command {
	case domain.CommandShed:
		future = a.client.BasicShed(duration)
	case domain.CommandEndShed:
		future = a.client.BasicEndShed(duration)
	case domain.CommandLoadUp:
		future = a.client.BasicLoadUp(duration)
	case domain.CommandCriticalPeakEvent:
		future = a.client.BasicCriticalPeakEvent(duration)
	case domain.CommandGridEmergency:
		future = a.client.BasicGridEmergency(duration)
	default:
		return nil, fmt.Errorf("unknown basic command %d", command)
	}
	code, err := future.Result(a.timeout)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.SendBasicCommandResponse{
		Code: code,
	}, nil
}

func (a *UCMActor) sendOutsideCommStatus(status cta2045.OutsideCommStatus) (*domain.OutsideCommStatusResponse, error) {
	code, err := a.client.BasicOutsideCommConnectionStatus(status).Result(a.timeout)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.OutsideCommStatusResponse{
		Code: code,
	}, nil
}

// runHandshake performs the startup capability exchange. Each query failure
// is collected rather than returned, the caller decides how loudly to
// complain.
func (a *UCMActor) runHandshake() *domain.HandshakeResponse {
	var failed []string

	if _, err := a.client.QuerySupportDataLinkMessages().Result(a.timeout); err != nil {
		logger.Warn(err)
		failed = append(failed, "support_data_link_messages")
	}
	if _, err := a.client.QueryMaxPayload().Result(a.timeout); err != nil {
		logger.Warn(err)
		failed = append(failed, "max_payload")
	}
	if _, err := a.client.QuerySupportIntermediateMessages().Result(a.timeout); err != nil {
		logger.Warn(err)
		failed = append(failed, "support_intermediate_messages")
	}
	if _, err := a.client.IntermediateGetDeviceInformation().Result(a.timeout); err != nil {
		logger.Warn(err)
		failed = append(failed, "device_information")
	}

	return &domain.HandshakeResponse{
		Failed: failed,
		Info:   a.client.GetDeviceInfo(),
	}
}

func (a *UCMActor) getCommodityData() (*domain.GetCommodityDataResponse, error) {
	if _, err := a.client.IntermediateGetCommodity().Result(a.timeout); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetCommodityDataResponse{
		Readings: a.client.CommodityData(),
	}, nil
}

func (a *UCMActor) queryOpState() (*domain.QueryOpStateResponse, error) {
	if _, err := a.client.BasicQueryOperationalState().Result(a.timeout); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.QueryOpStateResponse{
		State: a.client.OpState(),
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
