package hostsim

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/qashinka/PoseLockTool/internal/driver"
	"github.com/qashinka/PoseLockTool/internal/monitoring"
)

// subscriberBuffer is the per-subscriber channel depth. Submissions beyond
// it are dropped for that subscriber rather than stalling a device loop.
const subscriberBuffer = 256

// Submission is one pose update received from a device, stamped with the
// device's serial number and arrival time.
type Submission struct {
	Serial string             `json:"serial"`
	Index  driver.DeviceIndex `json:"index"`
	At     time.Time          `json:"at"`
	Pose   driver.DriverPose  `json:"pose"`
}

type registeredDevice struct {
	serial string
	class  driver.DeviceClass
	index  driver.DeviceIndex
	dev    driver.Device
}

type inputComponent struct {
	index  driver.DeviceIndex
	path   string
	scalar bool

	boolValue   bool
	scalarValue float64
}

// SimHost implements driver.Host over a World and a SettingsStore. Submitted
// poses are fanned out to subscribers the way lines flow out of a serial
// multiplexer: every subscriber gets its own channel, and slow subscribers
// miss submissions instead of blocking the device loops.
type SimHost struct {
	world    *World
	settings *SettingsStore

	mu          sync.Mutex
	devices     []*registeredDevice
	bySerial    map[string]*registeredDevice
	byIndex     map[driver.DeviceIndex]*registeredDevice
	nextIndex   driver.DeviceIndex
	subscribers map[string]chan Submission
	events      []driver.Event
	props       map[driver.DeviceIndex]map[driver.Property]string
	inputs      map[driver.InputHandle]*inputComponent
	nextInput   driver.InputHandle
	closed      bool
}

// NewSimHost creates a host over the given world and settings. Device
// indices are assigned from 1 upwards; index 0 is the headset's.
func NewSimHost(world *World, settings *SettingsStore) *SimHost {
	return &SimHost{
		world:       world,
		settings:    settings,
		bySerial:    make(map[string]*registeredDevice),
		byIndex:     make(map[driver.DeviceIndex]*registeredDevice),
		nextIndex:   driver.DeviceIndexHMD + 1,
		subscribers: make(map[string]chan Submission),
		props:       make(map[driver.DeviceIndex]map[driver.Property]string),
		inputs:      make(map[driver.InputHandle]*inputComponent),
	}
}

var _ driver.Host = (*SimHost)(nil)

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new channel receiving every pose submission. The
// returned ID identifies the channel when unsubscribing.
func (h *SimHost) Subscribe() (string, chan Submission) {
	id := randomID()
	ch := make(chan Submission, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *SimHost) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Close closes every subscriber channel. Submissions arriving after Close
// are dropped.
func (h *SimHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

// RegisterDevice assigns the next device index to dev. Serial numbers must
// be unique; registration fails once the tracking capacity is exhausted.
func (h *SimHost) RegisterDevice(serial string, class driver.DeviceClass, dev driver.Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.bySerial[serial]; ok {
		return fmt.Errorf("device %q already registered", serial)
	}
	if int(h.nextIndex) >= driver.MaxTrackedDevices {
		return fmt.Errorf("no free device slots for %q", serial)
	}

	reg := &registeredDevice{serial: serial, class: class, index: h.nextIndex, dev: dev}
	h.nextIndex++
	h.devices = append(h.devices, reg)
	h.bySerial[serial] = reg
	h.byIndex[reg.index] = reg

	monitoring.Logf("hostsim: registered %s as device %d (class %d)", serial, reg.index, class)
	return nil
}

// ActivateAll activates every registered device at its assigned index and
// queues an activation event for each.
func (h *SimHost) ActivateAll() error {
	for _, reg := range h.registeredDevices() {
		if err := reg.dev.Activate(reg.index); err != nil {
			return fmt.Errorf("activate %s: %w", reg.serial, err)
		}
		h.PushEvent(driver.Event{Type: driver.EventTrackedDeviceActivated, Index: reg.index})
	}
	return nil
}

// DeactivateAll deactivates every registered device, blocking until each
// update loop has stopped.
func (h *SimHost) DeactivateAll() {
	for _, reg := range h.registeredDevices() {
		reg.dev.Deactivate()
		h.PushEvent(driver.Event{Type: driver.EventTrackedDeviceDeactivated, Index: reg.index})
	}
}

func (h *SimHost) registeredDevices() []*registeredDevice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*registeredDevice(nil), h.devices...)
}

// Serials returns the registered serial numbers in device-index order.
func (h *SimHost) Serials() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.devices))
	for _, reg := range h.devices {
		out = append(out, reg.serial)
	}
	return out
}

// IndexOf returns the device index assigned to a serial number.
func (h *SimHost) IndexOf(serial string) (driver.DeviceIndex, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	reg, ok := h.bySerial[serial]
	if !ok {
		return driver.DeviceIndexInvalid, false
	}
	return reg.index, true
}

// DeviceBySerial returns the registered device for a serial number.
func (h *SimHost) DeviceBySerial(serial string) (driver.Device, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	reg, ok := h.bySerial[serial]
	if !ok {
		return nil, false
	}
	return reg.dev, true
}

// PushEvent queues an event for the next provider frame.
func (h *SimHost) PushEvent(ev driver.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

// PropertyValue returns a device property set through SetStringProperty.
func (h *SimHost) PropertyValue(index driver.DeviceIndex, prop driver.Property) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.props[index][prop]
}

// InputSnapshot returns the current value of every input component created
// for a device, keyed by component path.
func (h *SimHost) InputSnapshot(index driver.DeviceIndex) map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]interface{})
	for _, c := range h.inputs {
		if c.index != index {
			continue
		}
		if c.scalar {
			out[c.path] = c.scalarValue
		} else {
			out[c.path] = c.boolValue
		}
	}
	return out
}

// driver.Host implementation.

// RawTrackedPoses copies the world's pose table into out.
func (h *SimHost) RawTrackedPoses(predictedSecondsFromNow float64, out []driver.TrackedPose) {
	h.world.Snapshot(out)
}

// SubmitPose stamps the submission and fans it out to all subscribers.
// Poses from indices that were never registered are dropped.
func (h *SimHost) SubmitPose(index driver.DeviceIndex, pose driver.DriverPose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	reg, ok := h.byIndex[index]
	if !ok {
		monitoring.Logf("hostsim: dropping pose for unknown device index %d", index)
		return
	}

	sub := Submission{Serial: reg.serial, Index: index, At: time.Now(), Pose: pose}
	for _, ch := range h.subscribers {
		select {
		case ch <- sub:
		default:
		}
	}
}

// Int32 reads an integer setting from the store.
func (h *SimHost) Int32(section, key string) (int32, bool) {
	return h.settings.Int32(section, key)
}

// String reads a string setting from the store.
func (h *SimHost) String(section, key string) (string, bool) {
	return h.settings.String(section, key)
}

// SetStringProperty records a device property.
func (h *SimHost) SetStringProperty(index driver.DeviceIndex, prop driver.Property, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.props[index]
	if !ok {
		m = make(map[driver.Property]string)
		h.props[index] = m
	}
	m[prop] = value
}

// CreateBoolComponent registers a boolean input component.
func (h *SimHost) CreateBoolComponent(index driver.DeviceIndex, path string) (driver.InputHandle, error) {
	return h.createComponent(index, path, false)
}

// CreateScalarComponent registers a scalar input component.
func (h *SimHost) CreateScalarComponent(index driver.DeviceIndex, path string) (driver.InputHandle, error) {
	return h.createComponent(index, path, true)
}

func (h *SimHost) createComponent(index driver.DeviceIndex, path string, scalar bool) (driver.InputHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Devices re-create their components on every activation; hand the
	// existing handle back rather than growing the registry.
	for handle, c := range h.inputs {
		if c.index == index && c.path == path {
			if c.scalar != scalar {
				return driver.InputHandleInvalid, fmt.Errorf("component %s already exists for device %d with a different type", path, index)
			}
			return handle, nil
		}
	}
	h.nextInput++
	h.inputs[h.nextInput] = &inputComponent{index: index, path: path, scalar: scalar}
	return h.nextInput, nil
}

// UpdateBoolComponent stores a boolean component value. Unknown handles are
// ignored.
func (h *SimHost) UpdateBoolComponent(handle driver.InputHandle, value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.inputs[handle]; ok && !c.scalar {
		c.boolValue = value
	}
}

// UpdateScalarComponent stores a scalar component value. Unknown handles are
// ignored.
func (h *SimHost) UpdateScalarComponent(handle driver.InputHandle, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.inputs[handle]; ok && c.scalar {
		c.scalarValue = value
	}
}

// PollNextEvent pops the oldest queued event.
func (h *SimHost) PollNextEvent() (driver.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return driver.Event{}, false
	}
	ev := h.events[0]
	h.events = h.events[1:]
	return ev, true
}
