package cta2045

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameRoundTrip(t *testing.T) {
	raw := encodeFrame(msgTypeBasicHigh, msgTypeBasicLow, []byte{opShed, 0x00})
	assert.Equal(t, 8, len(raw), "basic command frame should be 8 bytes")
	assert.Equal(t, frameLen(raw), len(raw))

	fr, err := decodeFrame(raw)
	assert.NoError(t, err)
	assert.True(t, fr.isBasic())
	assert.Equal(t, []byte{opShed, 0x00}, fr.payload)
}

func TestFrameChecksumRejectsCorruption(t *testing.T) {
	raw := encodeFrame(msgTypeBasicHigh, msgTypeBasicLow, []byte{opLoadUp, 0x00})
	raw[4] ^= 0xFF
	_, err := decodeFrame(raw)
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestFrameShort(t *testing.T) {
	_, err := decodeFrame([]byte{msgTypeBasicHigh, msgTypeBasicLow, 0x00})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDurationByte(t *testing.T) {
	assert.Equal(t, byte(0), durationByte(0), "zero duration means indefinite")
	assert.Equal(t, byte(1), durationByte(2*time.Minute))
	assert.Equal(t, byte(2), durationByte(4*time.Minute))
	assert.Equal(t, byte(3), durationByte(5*time.Minute))
}

func TestParseCommodityPayload(t *testing.T) {
	payload := []byte{opGetCommodity, 0x00}
	// code 0, rate 500, cumulative 0
	payload = append(payload, 0x00, 0, 0, 0, 0, 0x01, 0xF4, 0, 0, 0, 0, 0, 0)
	// code 7, rate 0, cumulative 3400
	payload = append(payload, 0x07, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x0D, 0x48)

	readings := parseCommodityPayload(payload)
	assert.Len(t, readings, 2)
	assert.Equal(t, CommodityElectricityConsumed, readings[0].Code)
	assert.Equal(t, uint32(500), readings[0].Rate)
	assert.Equal(t, CommodityPresentEnergyCapacity, readings[1].Code)
	assert.Equal(t, uint64(3400), readings[1].Cumulative)
}

func TestParseCommodityPayloadDropsTruncatedInstance(t *testing.T) {
	payload := []byte{opGetCommodity, 0x00, 0x06, 0x00, 0x00}
	assert.Empty(t, parseCommodityPayload(payload))
}

func TestParseOpStatePayload(t *testing.T) {
	state, err := parseOpStatePayload([]byte{opStateResponse, byte(StateCurtailed)})
	assert.NoError(t, err)
	assert.Equal(t, StateCurtailed, state)

	_, err = parseOpStatePayload([]byte{opShed, 0x00})
	assert.Error(t, err)
}

func TestFutureResolveAndTimeout(t *testing.T) {
	f := newFuture()
	f.resolve(ResponseAppAck, nil)
	code, err := f.Result(time.Second)
	assert.NoError(t, err)
	assert.Equal(t, ResponseAppAck, code)

	pending := newFuture()
	_, err = pending.Result(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrResultTimeout)
}

func TestTestClientRecordsCommands(t *testing.T) {
	c := CreateTestClient()
	c.BasicShed(0)
	c.BasicLoadUp(0)
	c.BasicOutsideCommConnectionStatus(OutsideCommFound)

	cmds := c.Commands()
	assert.Equal(t, []string{"shed", "load_up", "outside_comm_status"}, c.CommandNames())
	assert.Equal(t, OutsideCommFound, cmds[2].Status)

	code, err := c.BasicEndShed(0).Result(time.Second)
	assert.NoError(t, err)
	assert.Equal(t, ResponseAppAck, code)
}
