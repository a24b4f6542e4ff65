package actor

import (
	"fmt"
	"time"

	"ewh2grid/internal/config"
	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/core/events"
	"ewh2grid/internal/core/port"
	"ewh2grid/internal/core/service"
	"ewh2grid/internal/datalog"
	. "ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/cta2045"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ControllerActor is the demand-response brain: it owns the DER property
// store, the cached commanded-state tag and the last device-reported
// operational state, reconciles them once per second through the tick
// planner, and relays curtailment transitions to the UCM actor.
//
// The commanded tag and the device-reported state are kept in separate
// fields on purpose; they drift apart between property syncs and must
// never be collapsed into one.
type ControllerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config      *config.Config
	ucmActor    *actor.PID
	meterActor  *actor.PID
	eventStream *eventstream.EventStream
	store       *service.PropertyStore
	planner     port.TickPlanner
	datalog     *datalog.Writer
	clock       func() time.Time

	commanded        domain.CommandedState
	deviceState      cta2045.OperationalState
	lastLoggedMinute int

	logger *zap.Logger
}

type controllerTick struct {
}

func NewControllerActor(config *config.Config, ucmActor, meterActor *actor.PID, eventStream *eventstream.EventStream,
	datalogWriter *datalog.Writer, logger *zap.Logger) *ControllerActor {
	act := &ControllerActor{
		config:      config,
		ucmActor:    ucmActor,
		meterActor:  meterActor,
		eventStream: eventStream,
		store: service.NewPropertyStore(service.RatedImportPowerWatt, service.IdleLossesWatt,
			config.DER.RatedImportRamp),
		planner:          service.WallClockPlanner{},
		datalog:          datalogWriter,
		clock:            time.Now,
		commanded:        domain.CommandedNone,
		deviceState:      cta2045.StateNormal,
		lastLoggedMinute: -1,
		behavior:         actor.NewBehavior(),
		stash:            &Stash{},
		logger:           ActorLogger("controller", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// WithClock swaps the wall clock, for tests.
func (state *ControllerActor) WithClock(clock func() time.Time) *ControllerActor {
	state.clock = clock
	return state
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControllerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("controller@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		// announce utility connectivity, then run the capability handshake
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.OutsideCommStatusRequest{
			Status: cta2045.OutsideCommFound,
		}, state.requestTimeout(1)), func(err error) any {
			return domain.OutsideCommStatusResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.HandshakeRequest{}, state.requestTimeout(5)), func(err error) any {
			return domain.HandshakeResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingStartupReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("controller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) WaitingStartupReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.OutsideCommStatusResponse:
		if msg.HasResponseError() {
			state.logger.Warn("controller@waitingStartup outside comm announce failed", zap.Error(msg.GetResponseError()))
		}
	case domain.HandshakeResponse:
		if msg.HasResponseError() {
			state.logger.Warn("controller@waitingStartup handshake failed", zap.Error(msg.GetResponseError()))
		}
		for _, query := range msg.Failed {
			state.logger.Warn("controller@waitingStartup handshake query failed", zap.String("query", query))
		}
		if msg.Info != nil {
			state.logger.Info("controller@waitingStartup device",
				zap.Uint16("vendor", msg.Info.VendorID),
				zap.String("model", msg.Info.ModelNumber),
				zap.String("serial", msg.Info.SerialNumber))
		}

		// initial property sync, then the per-second loop
		state.queryProperties(ctx)
		state.scheduleNextTick(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("controller@waitingStartup: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("controller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROLLER,
			Healthy: true,
			State:   state.commanded.String(),
		})
	case controllerTick:
		state.handleTick(ctx)
	case domain.CriticalPeakRequest:
		state.logger.Info("controller: critical peak event", zap.String("commanded", domain.CommandedCriticalPeak.String()))
		state.sendBasicCommand(ctx, domain.CommandCriticalPeakEvent)
		state.setCommanded(domain.CommandedCriticalPeak)
		state.respondControl(ctx, msg)
	case domain.LoadUpRequest:
		state.logger.Info("controller: load up", zap.String("commanded", domain.CommandedLoadUp.String()))
		state.sendBasicCommand(ctx, domain.CommandLoadUp)
		state.setCommanded(domain.CommandedLoadUp)
		state.respondControl(ctx, msg)
	case domain.GridEmergencyRequest:
		state.logger.Info("controller: grid emergency", zap.String("commanded", domain.CommandedGridEmergency.String()))
		state.sendBasicCommand(ctx, domain.CommandGridEmergency)
		state.setCommanded(domain.CommandedGridEmergency)
		state.respondControl(ctx, msg)
	case domain.EndCurtailmentRequest:
		// end-shed releases the appliance; the commanded tag is left alone
		// until the next property sync reveals the true device state
		state.logger.Info("controller: end curtailment")
		state.sendBasicCommand(ctx, domain.CommandEndShed)
		state.respondControl(ctx, msg)
	case domain.ShedRequest:
		state.logger.Info("controller: shed")
		state.sendBasicCommand(ctx, domain.CommandShed)
		state.respondControl(ctx, msg)
	case domain.SetImportTargetRequest:
		state.logger.Info("controller: set import target", zap.Uint32("watts", msg.Watts))
		state.store.SetImportWatts(msg.Watts)
		state.publishAll(events.ImportTargetUpdateEvents(msg.Watts))
		if ctx.Sender() != nil || msg.ReplyTo() != nil {
			ForRequest(msg).Respond(ctx, domain.SetTargetResponse{})
		}
	case domain.SetExportTargetRequest:
		// a water heater cannot export: accept the target but pin export
		// energy to zero so the optimizer never sees phantom generation
		state.logger.Info("controller: set export target", zap.Uint32("watts", msg.Watts))
		state.store.SetExportWatts(msg.Watts)
		state.store.SetExportEnergy(0)
		if ctx.Sender() != nil || msg.ReplyTo() != nil {
			ForRequest(msg).Respond(ctx, domain.SetTargetResponse{})
		}
	case domain.GetSnapshotRequest:
		state.logger.Debug("controller@default: GetSnapshotRequest")
		state.handleSnapshot(ctx, msg)
	case domain.GetCommodityDataResponse:
		if msg.HasResponseError() {
			state.logger.Error("controller@default commodity query failed", zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("controller@default GetCommodityDataResponse", zap.Int("readings", len(msg.Readings)))
		state.store.FoldCommodityReadings(msg.Readings)
		state.publishAll(events.DERPropertiesToUpdateEvents(state.store.Snapshot()))
	case domain.QueryOpStateResponse:
		if msg.HasResponseError() {
			state.logger.Error("controller@default op state query failed", zap.Error(msg.GetResponseError()))
			return
		}
		if msg.State != state.deviceState {
			state.logger.Info("controller: device state changed",
				zap.String("from", state.deviceState.String()),
				zap.String("to", msg.State.String()))
		}
		state.deviceState = msg.State
		state.publishAll(events.DeviceStateToUpdateEvents(msg.State))
	case domain.OutsideCommStatusResponse:
		if msg.HasResponseError() {
			state.logger.Warn("controller@default heartbeat failed", zap.Error(msg.GetResponseError()))
		}
	case domain.SendBasicCommandResponse:
		if msg.HasResponseError() {
			state.logger.Error("controller@default device command failed", zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("controller@default device command acked", zap.String("code", msg.Code.String()))
	case domain.GetCurrentResponse:
		state.handleCurrentSample(ctx, msg)
	default:
		state.logger.Debug("controller@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControllerActor) handleTick(ctx actor.Context) {
	now := state.clock()
	decision := state.planner.PlanTick(domain.TickInput{
		Now:              now,
		LastLoggedMinute: state.lastLoggedMinute,
		HeartbeatMinutes: state.config.UCM.HeartbeatMinutes,
		ImportWatts:      state.store.ImportWatts(),
		ImportPower:      state.store.ImportPower(),
		DeviceState:      state.deviceState,
	})

	if decision.QueryProperties {
		state.queryProperties(ctx)
	}
	if decision.Heartbeat {
		state.logger.Debug("controller@tick heartbeat")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.OutsideCommStatusRequest{
			Status: cta2045.OutsideCommFound,
		}, state.requestTimeout(1)), func(err error) any {
			return domain.OutsideCommStatusResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	}
	if decision.WriteLog {
		// mark the minute now so a slow meter sample cannot double-log it
		state.lastLoggedMinute = now.Minute()
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.GetCurrentRequest{}, 3*time.Second), func(err error) any {
			return domain.GetCurrentResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	}
	switch decision.Power {
	case domain.PowerImport:
		state.logger.Info("controller: import power, releasing appliance")
		state.sendBasicCommand(ctx, domain.CommandLoadUp)
	case domain.PowerIdle:
		state.logger.Info("controller: idle loss, suppressing consumption")
		state.sendBasicCommand(ctx, domain.CommandShed)
	}

	state.scheduleNextTick(ctx)
}

// queryProperties runs the commodity sync and then a fire-and-forget
// operational-state query; both results come back as piped responses.
func (state *ControllerActor) queryProperties(ctx actor.Context) {
	state.logger.Debug("controller: query properties")
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.GetCommodityDataRequest{}, state.requestTimeout(1)), func(err error) any {
		return domain.GetCommodityDataResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.QueryOpStateRequest{}, state.requestTimeout(1)), func(err error) any {
		return domain.QueryOpStateResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *ControllerActor) handleCurrentSample(ctx actor.Context, msg domain.GetCurrentResponse) {
	if msg.HasResponseError() {
		state.logger.Warn("controller@default current sample failed", zap.Error(msg.GetResponseError()))
		return
	}
	props := state.store.Snapshot()
	realPower := service.RealImportPower(msg.Amps)
	state.datalog.Append(datalog.Record{
		ExportWatts:       props.ExportWatts,
		ExportPower:       props.ExportPower,
		ExportEnergy:      props.ExportEnergy,
		ImportWatts:       props.ImportWatts,
		ImportPower:       props.ImportPower,
		ImportEnergy:      props.ImportEnergy,
		RatedImportEnergy: props.RatedImportEnergy,
		RealImportPower:   realPower,
		DeviceState:       state.deviceState,
	})
	state.publishAll(events.RealImportPowerToUpdateEvents(realPower, msg.Amps))
}

// handleSnapshot samples the meter before answering so the snapshot carries
// a fresh real-power figure. A meter failure degrades to zero, it never
// blocks the answer.
func (state *ControllerActor) handleSnapshot(ctx actor.Context, msg domain.GetSnapshotRequest) {
	replyTo := ForRequest(msg).ReplyTo(ctx)
	ctx.ReenterAfter(ctx.RequestFuture(state.meterActor, domain.GetCurrentRequest{}, 3*time.Second), func(res any, err error) {
		var realPower uint32
		if err == nil {
			if current, ok := res.(domain.GetCurrentResponse); ok && !current.HasResponseError() {
				realPower = service.RealImportPower(current.Amps)
			}
		}
		ctx.Send(replyTo, domain.GetSnapshotResponse{
			Properties:      state.store.Snapshot(),
			DeviceState:     state.deviceState,
			Commanded:       state.commanded,
			RealImportPower: realPower,
		})
	})
}

// sendBasicCommand relays one zero-duration device command. Fire and
// forget: the ack comes back as a piped SendBasicCommandResponse and is
// only logged.
func (state *ControllerActor) sendBasicCommand(ctx actor.Context, command domain.BasicCommand) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.SendBasicCommandRequest{
		Command:  command,
		Duration: 0,
	}, state.requestTimeout(1)), func(err error) any {
		return domain.SendBasicCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *ControllerActor) setCommanded(commanded domain.CommandedState) {
	state.commanded = commanded
	state.publishAll(events.CommandedStateToUpdateEvents(commanded))
}

func (state *ControllerActor) respondControl(ctx actor.Context, msg domain.ControlRequest) {
	if ctx.Sender() != nil || msg.ReplyTo() != nil {
		ForRequest(msg).Respond(ctx, domain.ControlResponse{
			Commanded: state.commanded,
		})
	}
}

func (state *ControllerActor) publishAll(evs []any) {
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

// scheduleNextTick aligns the next tick to the next wall-clock second
// boundary. There is no catch-up: a late tick simply lands on a later
// boundary and that cycle's actions are skipped.
func (state *ControllerActor) scheduleNextTick(ctx actor.Context) {
	now := state.clock()
	delay := now.Truncate(time.Second).Add(time.Second).Sub(now)
	if delay <= 0 {
		delay = time.Second
	}
	state.scheduler.RequestOnce(delay, ctx.Self(), controllerTick{})
}

func (state *ControllerActor) requestTimeout(exchanges int) time.Duration {
	commandTimeout := time.Duration(state.config.UCM.CommandTimeoutMillis) * time.Millisecond
	return time.Duration(exchanges)*commandTimeout + time.Second
}
