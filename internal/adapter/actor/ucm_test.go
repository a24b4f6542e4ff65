package actor

import (
	"testing"
	"time"

	"ewh2grid/internal/core/domain"
	"ewh2grid/internal/util/actorutil"
	"ewh2grid/pkg/cta2045"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnUCMActor(t *testing.T, client *cta2045.TestClient) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewUCMActor(client, 500*time.Millisecond, logger) })
	pid := context.Spawn(props)

	time.Sleep(200 * time.Millisecond)

	return as, context, pid
}

func TestSendBasicCommandUCMActor(t *testing.T) {

	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	as, context, pid := spawnUCMActor(t, client)

	msg := domain.SendBasicCommandRequest{Command: domain.CommandCriticalPeakEvent, Duration: 0}
	result, err := context.RequestFuture(pid, msg, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SendBasicCommandResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(cta2045.ResponseAppAck, resp.Code, "device ack")

	commands := client.Commands()
	assert.Len(commands, 1)
	assert.Equal("critical_peak_event", commands[0].Name)
	assert.Equal(time.Duration(0), commands[0].Duration, "zero duration means indefinite")

	context.Stop(pid)

	as.Shutdown()
}

func TestSendBasicCommandTimeoutUCMActor(t *testing.T) {

	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	client.SetSilent(true)
	as, context, pid := spawnUCMActor(t, client)

	msg := domain.SendBasicCommandRequest{Command: domain.CommandShed, Duration: 0}
	result, err := context.RequestFuture(pid, msg, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SendBasicCommandResponse)

	assert.True(resp.HasResponseError(), "unanswered command reports an error")
	assert.ErrorIs(resp.GetResponseError(), cta2045.ErrResultTimeout)

	context.Stop(pid)

	as.Shutdown()
}

func TestHandshakeUCMActor(t *testing.T) {

	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	as, context, pid := spawnUCMActor(t, client)

	result, err := context.RequestFuture(pid, domain.HandshakeRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.HandshakeResponse)

	assert.False(resp.HasResponseError())
	assert.Empty(resp.Failed, "all capability queries answered")

	names := client.CommandNames()
	assert.Contains(names, "query_support_data_link")
	assert.Contains(names, "query_max_payload")
	assert.Contains(names, "query_support_intermediate")
	assert.Contains(names, "get_device_information")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetCommodityDataUCMActor(t *testing.T) {

	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	client.SetCommodityData([]cta2045.CommodityReading{
		{Code: cta2045.CommodityElectricityConsumed, Rate: 500},
		{Code: cta2045.CommodityPresentEnergyCapacity, Cumulative: 3400},
	})
	as, context, pid := spawnUCMActor(t, client)

	result, err := context.RequestFuture(pid, domain.GetCommodityDataRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetCommodityDataResponse)

	assert.False(resp.HasResponseError())
	assert.Len(resp.Readings, 2)
	assert.Equal(uint32(500), resp.Readings[0].Rate)

	context.Stop(pid)

	as.Shutdown()
}

func TestQueryOpStateUCMActor(t *testing.T) {

	assert := assert.New(t)

	client := cta2045.CreateTestClient()
	client.SetOpState(cta2045.StateGrid)
	as, context, pid := spawnUCMActor(t, client)

	result, err := context.RequestFuture(pid, domain.QueryOpStateRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.QueryOpStateResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(cta2045.StateGrid, resp.State)

	context.Stop(pid)

	as.Shutdown()
}
