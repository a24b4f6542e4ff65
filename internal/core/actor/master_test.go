package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "ewh2grid/internal/adapter/actor"
	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/util"
	"ewh2grid/pkg/cta2045"
	"ewh2grid/pkg/ctmeter"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.UCMActor {
			return adactor.NewUCMActor(cta2045.CreateTestClient(), 500*time.Millisecond, logger)
		}, func() *adactor.MeterActor {
			return adactor.NewMeterActor(ctmeter.TestReader{Amps: 10}, logger)
		}, func(_ *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, logger)
		}, newTestDatalogWriter(t), logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// control requests ride through the master
	res, err = context.RequestFuture(pid, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapshot, ok := res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.Equal(t, uint32(2400), snapshot.RealImportPower)

	context.Stop(pid)

	as.Shutdown()
}
