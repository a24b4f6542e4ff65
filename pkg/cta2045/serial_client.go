package cta2045

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// SerialClient drives a UCM over a serial port. Writes happen from the
// calling goroutine under a mutex; a single reader goroutine decodes frames,
// acknowledges at the link layer, resolves pending futures in FIFO order and
// refreshes the caches for operational state, commodity data and device
// information.
type SerialClient struct {
	portName string
	baudRate uint
	port     serial.Port

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   []*Future
	opState   OperationalState
	commodity []CommodityReading
	info      *DeviceInfo

	done chan struct{}
}

// CreateSerialClient opens the serial port for the UCM. The port is probed
// here so that an unreachable transport surfaces at construction, not on the
// first command.
func CreateSerialClient(portName string, baudRate uint) (*SerialClient, error) {
	port, err := serial.Open(&serial.Config{
		Address:  portName,
		BaudRate: int(baudRate),
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("cta2045: open %s: %w", portName, err)
	}
	return &SerialClient{
		portName: portName,
		baudRate: baudRate,
		port:     port,
		done:     make(chan struct{}),
	}, nil
}

func (c *SerialClient) Start() error {
	if c.port == nil {
		return errors.New("cta2045: client not open")
	}
	go c.readLoop()
	return nil
}

func (c *SerialClient) Stop() error {
	close(c.done)
	return c.port.Close()
}

func (c *SerialClient) BasicShed(duration time.Duration) *Future {
	return c.send(basicCommand(opShed, durationByte(duration)))
}

func (c *SerialClient) BasicEndShed(duration time.Duration) *Future {
	return c.send(basicCommand(opEndShed, durationByte(duration)))
}

func (c *SerialClient) BasicLoadUp(duration time.Duration) *Future {
	return c.send(basicCommand(opLoadUp, durationByte(duration)))
}

func (c *SerialClient) BasicCriticalPeakEvent(duration time.Duration) *Future {
	return c.send(basicCommand(opCriticalPeakEvent, durationByte(duration)))
}

func (c *SerialClient) BasicGridEmergency(duration time.Duration) *Future {
	return c.send(basicCommand(opGridEmergency, durationByte(duration)))
}

func (c *SerialClient) BasicOutsideCommConnectionStatus(status OutsideCommStatus) *Future {
	return c.send(basicCommand(opOutsideCommStatus, byte(status)))
}

func (c *SerialClient) BasicQueryOperationalState() *Future {
	return c.send(basicCommand(opQueryOpState, 0x00))
}

func (c *SerialClient) QuerySupportDataLinkMessages() *Future {
	return c.send(messageTypeSupportedQuery(msgTypeBasicHigh, msgTypeDataLinkLow))
}

func (c *SerialClient) QueryMaxPayload() *Future {
	return c.send(dataLinkCommand(opMaxPayloadRequest, 0x00))
}

func (c *SerialClient) QuerySupportIntermediateMessages() *Future {
	return c.send(messageTypeSupportedQuery(msgTypeBasicHigh, msgTypeIntermediateLow))
}

func (c *SerialClient) IntermediateGetDeviceInformation() *Future {
	return c.send(intermediateCommand(opGetDeviceInformation, 0x00))
}

func (c *SerialClient) IntermediateGetCommodity() *Future {
	return c.send(intermediateCommand(opGetCommodity, 0x00))
}

func (c *SerialClient) CommodityData() []CommodityReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CommodityReading, len(c.commodity))
	copy(out, c.commodity)
	return out
}

func (c *SerialClient) OpState() OperationalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opState
}

func (c *SerialClient) GetDeviceInfo() *DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *SerialClient) send(frame []byte) *Future {
	f := newFuture()

	c.mu.Lock()
	c.pending = append(c.pending, f)
	c.mu.Unlock()

	c.writeMu.Lock()
	_, err := c.port.Write(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(f)
		f.resolve(ResponseNone, fmt.Errorf("cta2045: write: %w", err))
	}
	return f
}

func (c *SerialClient) dropPending(f *Future) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p == f {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *SerialClient) popPending() *Future {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	f := c.pending[0]
	c.pending = c.pending[1:]
	return f
}

func (c *SerialClient) readLoop() {
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 256)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		n, err := c.port.Read(chunk)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, serial.ErrTimeout) {
				continue
			}
			// port gone: fail every waiter
			for f := c.popPending(); f != nil; f = c.popPending() {
				f.resolve(ResponseNone, fmt.Errorf("cta2045: read: %w", err))
			}
			return
		}
		buf = append(buf, chunk[:n]...)

		for {
			// link-layer ack/nack is two bytes, no length field
			if len(buf) >= 2 && (buf[0] == 0x06 || buf[0] == 0x15) && buf[1] == 0x00 {
				code := ResponseLinkAck
				if buf[0] == 0x15 {
					code = ResponseLinkNack
				}
				buf = buf[2:]
				if code == ResponseLinkNack {
					if f := c.popPending(); f != nil {
						f.resolve(code, nil)
					}
				}
				continue
			}
			total := frameLen(buf)
			if total == 0 || len(buf) < total {
				break
			}
			fr, err := decodeFrame(buf[:total])
			buf = buf[total:]
			if err != nil {
				c.writeLinkReply(false)
				continue
			}
			c.writeLinkReply(true)
			c.handleFrame(fr)
		}
	}
}

func (c *SerialClient) writeLinkReply(ack bool) {
	reply := []byte{0x06, 0x00}
	if !ack {
		reply = []byte{0x15, 0x00}
	}
	c.writeMu.Lock()
	c.port.Write(reply)
	c.writeMu.Unlock()
}

func (c *SerialClient) handleFrame(fr frame) {
	switch {
	case fr.isBasic():
		if len(fr.payload) >= 2 && fr.payload[0] == opStateResponse {
			if state, err := parseOpStatePayload(fr.payload); err == nil {
				c.mu.Lock()
				c.opState = state
				c.mu.Unlock()
			}
		}
		c.resolveNext(ResponseAppAck)
	case fr.isIntermediate():
		if len(fr.payload) >= 1 && fr.payload[0] == opGetCommodity {
			readings := parseCommodityPayload(fr.payload)
			c.mu.Lock()
			c.commodity = readings
			c.mu.Unlock()
		} else if len(fr.payload) >= 1 && fr.payload[0] == opGetDeviceInformation {
			if info, err := parseDeviceInfoPayload(fr.payload); err == nil {
				c.mu.Lock()
				c.info = info
				c.mu.Unlock()
			}
		}
		c.resolveNext(ResponseAppAck)
	default:
		c.resolveNext(ResponseAppAck)
	}
}

func (c *SerialClient) resolveNext(code ResponseCode) {
	if f := c.popPending(); f != nil {
		f.resolve(code, nil)
	}
}

// ensure interface compliance
var _ Client = (*SerialClient)(nil)
