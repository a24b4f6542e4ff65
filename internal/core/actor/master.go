package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "ewh2grid/internal/adapter/actor"
	"ewh2grid/internal/config"
	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/datalog"
	. "ewh2grid/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type UCMActorProvider func() *adactor.UCMActor

type MeterActorProvider func() *adactor.MeterActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	datalogWriter      *datalog.Writer
	ucmActor           *actor.PID
	meterActor         *actor.PID
	mqttActor          *actor.PID
	controllerActor    *actor.PID
	ucmActorProvider   UCMActorProvider
	meterActorProvider MeterActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	ucmActorHealthy        bool
	meterActorHealthy      bool
	mqttActorHealthy       bool
	controllerActorHealthy bool
	checksReceived         int
	respondTo              *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, ucmActorProvider UCMActorProvider, meterActorProvider MeterActorProvider,
	mqttActorProvider MQTTActorProvider, datalogWriter *datalog.Writer, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger("master", logger),
		eventStream:        &eventstream.EventStream{},
		datalogWriter:      datalogWriter,
		ucmActorProvider:   ucmActorProvider,
		meterActorProvider: meterActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start UCM child
		ucmActorPID, err := state.startUCMActor(ctx)
		if err != nil {
			panic(err)
		}
		state.ucmActor = ucmActorPID

		// start meter child
		meterActorPID, err := state.startMeterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.meterActor = meterActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start controller child
		controllerActorPID, err := state.startControllerActor(ctx)
		if err != nil {
			panic(err)
		}
		state.controllerActor = controllerActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// UCM Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.ucmActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_UCM,
				Healthy: false,
			}
		})
		// Meter Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_METER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Controller Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.controllerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CONTROLLER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to controller
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				ctx.Send(state.controllerActor, cmd)
			}
		}
	case domain.ControlRequest:
		// HTTP surface requests ride through the master to the controller
		state.logger.Debug("master@default control request", zap.String("command", msg.ControlCommand()))
		ctx.Forward(state.controllerActor)
	case *actor.Terminated:
		// if the UCM fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_UCM) {
			state.logger.Error("master@default ucm error")
			panic(errors.New("ucm terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_UCM:
				state.currentHealthCheck.ucmActorHealthy = true
			case domain.ACTOR_ID_METER:
				state.currentHealthCheck.meterActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			case domain.ACTOR_ID_CONTROLLER:
				state.currentHealthCheck.controllerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startUCMActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	ucmProps := actor.PropsFromProducer(func() actor.Actor {
		return state.ucmActorProvider()
	}, actor.WithSupervisor(supervisor))
	ucmActorPID, err := ctx.SpawnNamed(ucmProps, domain.ACTOR_ID_UCM)
	if err != nil {
		return nil, err
	}

	return ucmActorPID, nil
}

func (state *MasterOfPuppetsActor) startMeterActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return state.meterActorProvider()
	}, actor.WithSupervisor(supervisor))
	meterActorPID, err := ctx.SpawnNamed(meterProps, domain.ACTOR_ID_METER)
	if err != nil {
		return nil, err
	}

	return meterActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startControllerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	controllerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewControllerActor(&state.config, state.ucmActor, state.meterActor, state.eventStream,
			state.datalogWriter, state.logger)
	}, actor.WithSupervisor(supervisor))
	controllerActorPID, err := ctx.SpawnNamed(controllerProps, domain.ACTOR_ID_CONTROLLER)
	if err != nil {
		return nil, err
	}

	return controllerActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.ucmActorHealthy = false
	state.meterActorHealthy = false
	state.mqttActorHealthy = false
	state.controllerActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 4
}

func (state *healthCheckResult) allHealthy() bool {
	return state.ucmActorHealthy && state.meterActorHealthy && state.mqttActorHealthy && state.controllerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
