package cta2045

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Message types (first two payload bytes of every frame).
const (
	msgTypeBasicHigh        = 0x08
	msgTypeBasicLow         = 0x01
	msgTypeIntermediateLow  = 0x02
	msgTypeDataLinkLow      = 0x03
	msgTypeSupportQueryHigh = 0x06
	msgTypeSupportQueryLow  = 0x01
)

// Basic DR application opcodes.
const (
	opShed              = 0x01
	opEndShed           = 0x02
	opCriticalPeakEvent = 0x0A
	opGridEmergency     = 0x0B
	opOutsideCommStatus = 0x0E
	opQueryOpState      = 0x12
	opStateResponse     = 0x13
	opLoadUp            = 0x17
)

// Intermediate DR opcodes.
const (
	opGetDeviceInformation = 0x01
	opGetCommodity         = 0x06
)

// Data-link opcodes.
const (
	opMaxPayloadRequest = 0x18
)

var (
	// ErrShortFrame is returned when fewer bytes than a minimal frame arrive.
	ErrShortFrame = errors.New("cta2045: short frame")
	// ErrBadChecksum is returned when the trailing checksum does not verify.
	ErrBadChecksum = errors.New("cta2045: checksum mismatch")
)

// frame is a decoded link-layer frame: message type pair plus opaque payload.
type frame struct {
	typeHigh byte
	typeLow  byte
	payload  []byte
}

func (f frame) isBasic() bool {
	return f.typeHigh == msgTypeBasicHigh && f.typeLow == msgTypeBasicLow
}

func (f frame) isIntermediate() bool {
	return f.typeHigh == msgTypeBasicHigh && f.typeLow == msgTypeIntermediateLow
}

func (f frame) isDataLink() bool {
	return f.typeHigh == msgTypeBasicHigh && f.typeLow == msgTypeDataLinkLow
}

// encodeFrame wraps a payload in the link layer: type pair, big-endian payload
// length, payload, and the two Fletcher checksum bytes chosen so that a
// Fletcher sum over the whole frame verifies to zero.
func encodeFrame(typeHigh, typeLow byte, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(payload)+2)
	buf = append(buf, typeHigh, typeLow)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	c1, c2 := fletcherAppend(buf)
	return append(buf, c1, c2)
}

func decodeFrame(buf []byte) (frame, error) {
	if len(buf) < 6 {
		return frame{}, ErrShortFrame
	}
	length := binary.BigEndian.Uint16(buf[2:4])
	if len(buf) < int(4+length+2) {
		return frame{}, ErrShortFrame
	}
	body := buf[:4+length+2]
	if !fletcherVerify(body) {
		return frame{}, ErrBadChecksum
	}
	return frame{
		typeHigh: buf[0],
		typeLow:  buf[1],
		payload:  buf[4 : 4+length],
	}, nil
}

// frameLen reports the total on-wire byte count of the frame starting at
// buf[0], or 0 when not enough bytes have arrived to know.
func frameLen(buf []byte) int {
	if len(buf) < 4 {
		return 0
	}
	return int(4 + binary.BigEndian.Uint16(buf[2:4]) + 2)
}

// Fletcher checksum, modulus 255. The appended pair makes the running sums of
// the whole message come out to zero on the receiving side.
func fletcherAppend(data []byte) (byte, byte) {
	var c1, c2 uint16
	for _, b := range data {
		c1 = (c1 + uint16(b)) % 255
		c2 = (c2 + c1) % 255
	}
	msb := byte(255 - (c1+c2)%255)
	lsb := byte(255 - (c1+uint16(msb))%255)
	return msb, lsb
}

func fletcherVerify(data []byte) bool {
	var c1, c2 uint16
	for _, b := range data {
		c1 = (c1 + uint16(b)) % 255
		c2 = (c2 + c1) % 255
	}
	return c1 == 0 && c2 == 0
}

// durationByte encodes an event duration on the basic DR scale: 0 means
// "indefinite, until explicitly ended"; otherwise the code n covers
// 2^(n-1) * 2 minutes, saturating at the longest representable window.
func durationByte(d time.Duration) byte {
	if d <= 0 {
		return 0
	}
	minutes := d.Minutes()
	for n := byte(1); n < 255; n++ {
		if float64(uint64(2)<<uint(n-1)) >= minutes {
			return n
		}
	}
	return 255
}

func basicCommand(opcode1, opcode2 byte) []byte {
	return encodeFrame(msgTypeBasicHigh, msgTypeBasicLow, []byte{opcode1, opcode2})
}

func intermediateCommand(opcode1, opcode2 byte) []byte {
	return encodeFrame(msgTypeBasicHigh, msgTypeIntermediateLow, []byte{opcode1, opcode2})
}

func dataLinkCommand(opcode1, opcode2 byte) []byte {
	return encodeFrame(msgTypeBasicHigh, msgTypeDataLinkLow, []byte{opcode1, opcode2})
}

// messageTypeSupportedQuery asks the UCM whether it supports the given
// message type pair.
func messageTypeSupportedQuery(typeHigh, typeLow byte) []byte {
	return encodeFrame(msgTypeSupportQueryHigh, msgTypeSupportQueryLow, []byte{typeHigh, typeLow})
}

// parseCommodityPayload decodes a commodity response: opcode pair followed by
// 13-byte instances of code(1) + rate(6) + cumulative(6). Truncated trailing
// instances are dropped.
func parseCommodityPayload(payload []byte) []CommodityReading {
	if len(payload) < 2 {
		return nil
	}
	data := payload[2:]
	var readings []CommodityReading
	for len(data) >= 13 {
		readings = append(readings, CommodityReading{
			Code:       CommodityCode(data[0]),
			Rate:       uint32(uint48(data[1:7])),
			Cumulative: uint48(data[7:13]),
		})
		data = data[13:]
	}
	return readings
}

func uint48(b []byte) uint64 {
	var v uint64
	for _, x := range b[:6] {
		v = v<<8 | uint64(x)
	}
	return v
}

// parseOpStatePayload decodes an operational state response.
func parseOpStatePayload(payload []byte) (OperationalState, error) {
	if len(payload) < 2 {
		return StateNormal, ErrShortFrame
	}
	if payload[0] != opStateResponse {
		return StateNormal, fmt.Errorf("cta2045: unexpected opcode 0x%02x in state response", payload[0])
	}
	return OperationalState(payload[1]), nil
}

// parseDeviceInfoPayload decodes the fixed head of a device information
// response. Identification strings beyond the numeric head are best effort.
func parseDeviceInfoPayload(payload []byte) (*DeviceInfo, error) {
	if len(payload) < 8 {
		return nil, ErrShortFrame
	}
	info := &DeviceInfo{
		VendorID:       binary.BigEndian.Uint16(payload[2:4]),
		DeviceType:     binary.BigEndian.Uint16(payload[4:6]),
		DeviceRevision: binary.BigEndian.Uint16(payload[6:8]),
	}
	rest := payload[8:]
	if len(rest) >= 4 {
		info.FirmwareVersion = fmt.Sprintf("%d.%d.%d", rest[0], rest[1], rest[2])
	}
	if len(rest) >= 20 {
		info.ModelNumber = trimPadding(rest[4:20])
	}
	if len(rest) >= 36 {
		info.SerialNumber = trimPadding(rest[20:36])
	}
	return info, nil
}

func trimPadding(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0x00 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}
