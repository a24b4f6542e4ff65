package cta2045

import (
	"sync"
	"time"
)

// TestClient is an in-memory UCM used by unit tests. Every command resolves
// immediately with an application ack and is recorded for inspection.
type TestClient struct {
	mu        sync.Mutex
	commands  []IssuedCommand
	opState   OperationalState
	commodity []CommodityReading
	info      *DeviceInfo
	started   bool
	silent    bool
}

// IssuedCommand is one recorded device command.
type IssuedCommand struct {
	Name     string
	Duration time.Duration
	Status   OutsideCommStatus
}

func CreateTestClient() *TestClient {
	return &TestClient{
		info: &DeviceInfo{
			VendorID:        0xBEEF,
			DeviceType:      0x0002, // water heater, electric storage
			DeviceRevision:  1,
			FirmwareVersion: "1.4.2",
			ModelNumber:     "EWH-50",
			SerialNumber:    "WH0042",
		},
	}
}

func (c *TestClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *TestClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}

func (c *TestClient) record(name string, duration time.Duration, status OutsideCommStatus) *Future {
	c.mu.Lock()
	c.commands = append(c.commands, IssuedCommand{Name: name, Duration: duration, Status: status})
	silent := c.silent
	c.mu.Unlock()
	if silent {
		return newFuture()
	}
	return resolvedFuture(ResponseAppAck)
}

func (c *TestClient) BasicShed(duration time.Duration) *Future {
	return c.record("shed", duration, 0)
}

func (c *TestClient) BasicEndShed(duration time.Duration) *Future {
	return c.record("end_shed", duration, 0)
}

func (c *TestClient) BasicLoadUp(duration time.Duration) *Future {
	return c.record("load_up", duration, 0)
}

func (c *TestClient) BasicCriticalPeakEvent(duration time.Duration) *Future {
	return c.record("critical_peak_event", duration, 0)
}

func (c *TestClient) BasicGridEmergency(duration time.Duration) *Future {
	return c.record("grid_emergency", duration, 0)
}

func (c *TestClient) BasicOutsideCommConnectionStatus(status OutsideCommStatus) *Future {
	return c.record("outside_comm_status", 0, status)
}

func (c *TestClient) BasicQueryOperationalState() *Future {
	return c.record("query_op_state", 0, 0)
}

func (c *TestClient) QuerySupportDataLinkMessages() *Future {
	return c.record("query_support_data_link", 0, 0)
}

func (c *TestClient) QueryMaxPayload() *Future {
	return c.record("query_max_payload", 0, 0)
}

func (c *TestClient) QuerySupportIntermediateMessages() *Future {
	return c.record("query_support_intermediate", 0, 0)
}

func (c *TestClient) IntermediateGetDeviceInformation() *Future {
	return c.record("get_device_information", 0, 0)
}

func (c *TestClient) IntermediateGetCommodity() *Future {
	return c.record("get_commodity", 0, 0)
}

func (c *TestClient) CommodityData() []CommodityReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CommodityReading, len(c.commodity))
	copy(out, c.commodity)
	return out
}

func (c *TestClient) OpState() OperationalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opState
}

func (c *TestClient) GetDeviceInfo() *DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// SetSilent makes subsequent commands go unanswered, so callers hit their
// result timeouts.
func (c *TestClient) SetSilent(silent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silent = silent
}

// SetOpState primes the cached operational state the next query will report.
func (c *TestClient) SetOpState(state OperationalState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opState = state
}

// SetCommodityData primes the buffered commodity readings.
func (c *TestClient) SetCommodityData(readings []CommodityReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commodity = readings
}

// Commands returns a copy of every command issued so far, oldest first.
func (c *TestClient) Commands() []IssuedCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]IssuedCommand, len(c.commands))
	copy(out, c.commands)
	return out
}

// CommandNames returns just the names of issued commands, oldest first.
func (c *TestClient) CommandNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		names[i] = cmd.Name
	}
	return names
}

// ResetCommands clears the recorded command history.
func (c *TestClient) ResetCommands() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = nil
}

// ensure interface compliance
var _ Client = (*TestClient)(nil)
