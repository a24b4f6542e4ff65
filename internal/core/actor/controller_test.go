package actor

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	adactor "ewh2grid/internal/adapter/actor"
	"ewh2grid/internal/config"
	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/datalog"
	"ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/cta2045"
	"ewh2grid/pkg/ctmeter"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.UCM.HeartbeatMinutes = 15
	cfg.UCM.CommandTimeoutMillis = 500
	cfg.DER.RatedImportRamp = 5
	return cfg
}

func spawnController(t *testing.T, client *cta2045.TestClient, amps float64, clock func() time.Time) (*actor.RootContext, *actor.PID) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := testConfig()

	ucmProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewUCMActor(client, 500*time.Millisecond, logger)
	})
	ucmActorPID := context.Spawn(ucmProps)

	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMeterActor(ctmeter.TestReader{Amps: amps}, logger)
	})
	meterActorPID := context.Spawn(meterProps)

	controllerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewControllerActor(&cfg, ucmActorPID, meterActorPID, &eventstream.EventStream{},
			newTestDatalogWriter(t), logger).WithClock(clock)
	})
	controllerActorPID := context.Spawn(controllerProps)

	return context, controllerActorPID
}

func newTestDatalogWriter(t *testing.T) *datalog.Writer {
	t.Helper()
	writer, err := datalog.NewWriter(config.DatalogConfig{Path: filepath.Join(t.TempDir(), "der.log")})
	if err != nil {
		t.Fatal(err)
	}
	return writer
}

// odd second, off the heartbeat minute: ticks take no scheduled action
func quietClock() time.Time {
	return time.Date(2024, 5, 10, 9, 7, 3, 0, time.UTC)
}

// even second: every tick runs a property sync
func evenSecondClock() time.Time {
	return time.Date(2024, 5, 10, 9, 7, 4, 0, time.UTC)
}

func TestControllerCurtailmentCommands(t *testing.T) {
	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	context, controllerPID := spawnController(t, client, 0, quietClock)

	time.Sleep(500 * time.Millisecond)
	client.ResetCommands()

	context.Send(controllerPID, domain.CriticalPeakRequest{})
	context.Send(controllerPID, domain.LoadUpRequest{})
	context.Send(controllerPID, domain.GridEmergencyRequest{})
	time.Sleep(500 * time.Millisecond)

	names := client.CommandNames()
	assert.Equal(1, countName(names, "critical_peak_event"))
	assert.Equal(1, countName(names, "load_up"))
	assert.Equal(1, countName(names, "grid_emergency"))

	hcr, err := controllerHealthCheck(context, controllerPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(hcr.Healthy, "actor should be healthy")
	assert.Equal("grid_emergency", hcr.State, "cached commanded state should be grid emergency")
}

func TestControllerEndCurtailmentKeepsCachedState(t *testing.T) {
	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	context, controllerPID := spawnController(t, client, 0, quietClock)

	time.Sleep(500 * time.Millisecond)
	client.ResetCommands()

	context.Send(controllerPID, domain.GridEmergencyRequest{})
	context.Send(controllerPID, domain.EndCurtailmentRequest{})
	time.Sleep(500 * time.Millisecond)

	names := client.CommandNames()
	assert.Equal(1, countName(names, "grid_emergency"))
	assert.Equal(1, countName(names, "end_shed"))

	// end curtailment does not touch the cached tag
	hcr, err := controllerHealthCheck(context, controllerPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal("grid_emergency", hcr.State)
}

func TestControllerPropertySyncAndSnapshot(t *testing.T) {
	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	client.SetCommodityData([]cta2045.CommodityReading{
		{Code: cta2045.CommodityElectricityConsumed, Rate: 500},
		{Code: cta2045.CommodityTotalEnergyCapacity, Cumulative: 12000},
		{Code: cta2045.CommodityPresentEnergyCapacity, Cumulative: 3400},
		{Code: cta2045.CommodityCode(99), Rate: 777, Cumulative: 777},
	})
	client.SetOpState(cta2045.StateCurtailed)

	context, controllerPID := spawnController(t, client, 10, evenSecondClock)

	time.Sleep(1 * time.Second)

	resp, err := context.RequestFuture(controllerPID, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapshot, ok := resp.(domain.GetSnapshotResponse)
	if !ok {
		t.Errorf("unexpected response type %T", resp)
		return
	}

	assert.Equal(uint32(500), snapshot.Properties.ImportPower)
	assert.Equal(uint64(12000), snapshot.Properties.RatedImportEnergy)
	assert.Equal(uint64(3400), snapshot.Properties.ImportEnergy)
	assert.Equal(uint32(4500), snapshot.Properties.RatedImportPower)
	assert.Equal(uint32(100), snapshot.Properties.IdleLosses)
	assert.Equal(uint64(0), snapshot.Properties.ExportEnergy)
	assert.Equal(cta2045.StateCurtailed, snapshot.DeviceState)
	// 10 A at 240 V nominal
	assert.Equal(uint32(2400), snapshot.RealImportPower)
}

func TestControllerImportTargetReleasesAppliance(t *testing.T) {
	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	context, controllerPID := spawnController(t, client, 0, quietClock)

	time.Sleep(500 * time.Millisecond)
	client.ResetCommands()

	// import target with zero measured import power: the next ticks must
	// release the appliance with a load-up
	context.Send(controllerPID, domain.SetImportTargetRequest{Watts: 4000})
	time.Sleep(1500 * time.Millisecond)

	names := client.CommandNames()
	assert.GreaterOrEqual(countName(names, "load_up"), 1)
	assert.Equal(0, countName(names, "shed"))
}

func countName(names []string, name string) int {
	count := 0
	for _, n := range names {
		if n == name {
			count++
		}
	}
	return count
}

func controllerHealthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
