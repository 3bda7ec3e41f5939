package driver

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/qashinka/PoseLockTool/internal/monitoring"
	"github.com/qashinka/PoseLockTool/internal/timeutil"
)

// ModelNumber is the model string shared by every virtual tracker. Serial
// numbers are ModelNumber with the tracker id appended.
const ModelNumber = "MyTrackerModelNumber"

// defaultUpdatePeriod is how long the update loop sleeps between cycles.
// Fixed sleep, not fixed-rate: an overrunning cycle is not compensated for.
const defaultUpdatePeriod = 5 * time.Millisecond

// TrackerDevice is one virtual tracker. Its pose is recomputed and submitted
// to the host by a dedicated update loop goroutine that runs between
// Activate and Deactivate.
//
// Proxy and pose-locking configuration is re-read from host settings on
// every cycle, so both can be changed while the device is live.
type TrackerDevice struct {
	id       uint32
	serial   string
	host     Host
	settings DriverSettings
	resolver *Resolver
	clock    timeutil.Clock
	period   time.Duration
	logf     func(format string, v ...interface{})

	active atomic.Bool
	done   chan struct{}

	// deviceIndex is written before the loop starts and after it has
	// joined, never while it runs.
	deviceIndex DeviceIndex

	inputs inputComponents

	// Loop state below is owned by the update loop goroutine.
	poseLockingEnabled bool
	proxyModeEnabled   bool
	proxyTarget        DeviceIndex
	lastKnownGood      DriverPose
	hasLastKnownGood   bool
	snapshot           []TrackedPose
}

// TrackerOption adjusts a TrackerDevice at construction.
type TrackerOption func(*TrackerDevice)

// WithClock substitutes the clock used by the update loop.
func WithClock(c timeutil.Clock) TrackerOption {
	return func(t *TrackerDevice) { t.clock = c }
}

// WithUpdatePeriod overrides the sleep between update cycles.
func WithUpdatePeriod(d time.Duration) TrackerOption {
	return func(t *TrackerDevice) { t.period = d }
}

// NewTrackerDevice creates the tracker with the given id. The id fixes the
// serial number and the direct-mode offset for the device's lifetime.
func NewTrackerDevice(id uint32, host Host, opts ...TrackerOption) *TrackerDevice {
	serial := ModelNumber + strconv.Itoa(int(id))
	t := &TrackerDevice{
		id:          id,
		serial:      serial,
		host:        host,
		settings:    NewDriverSettings(host),
		resolver:    NewResolver(id),
		clock:       timeutil.RealClock{},
		period:      defaultUpdatePeriod,
		logf:        monitoring.Prefixed(serial),
		deviceIndex: DeviceIndexInvalid,
		proxyTarget: DeviceIndexInvalid,
		snapshot:    make([]TrackedPose, MaxTrackedDevices),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ Device = (*TrackerDevice)(nil)

// SerialNumber returns the device's immutable serial number.
func (t *TrackerDevice) SerialNumber() string { return t.serial }

// Active reports whether the device is between Activate and Deactivate.
func (t *TrackerDevice) Active() bool { return t.active.Load() }

// Activate brings the device up at the host-assigned index: it publishes the
// device properties, creates the input components and starts the update
// loop. Activating an already-active device is a no-op.
func (t *TrackerDevice) Activate(index DeviceIndex) error {
	if !t.active.CompareAndSwap(false, true) {
		return nil
	}

	t.deviceIndex = index
	t.host.SetStringProperty(index, PropertyModelNumber, ModelNumber)
	t.host.SetStringProperty(index, PropertyInputProfilePath, inputProfilePath)

	inputs, err := createInputComponents(t.host, index)
	if err != nil {
		t.deviceIndex = DeviceIndexInvalid
		t.active.Store(false)
		return fmt.Errorf("activate %s: %w", t.serial, err)
	}
	t.inputs = inputs

	t.done = make(chan struct{})
	go t.runLoop(t.done)

	t.logf("activated at device index %d", index)
	return nil
}

// Deactivate stops the update loop and blocks until it has fully exited, so
// no pose submission can follow the return. It is idempotent and safe to
// call on a device that was never activated.
func (t *TrackerDevice) Deactivate() {
	if !t.active.CompareAndSwap(true, false) {
		return
	}
	<-t.done
	t.deviceIndex = DeviceIndexInvalid
	t.logf("deactivated")
}

// RunFrame refreshes the input components. Called by the provider once per
// host frame; the trackers have no physical inputs so every component is
// reported at rest.
func (t *TrackerDevice) RunFrame() {
	if !t.active.Load() {
		return
	}
	t.inputs.pushNeutral(t.host)
}

// ProcessEvent receives host events. The trackers have none to act on.
func (t *TrackerDevice) ProcessEvent(ev Event) {}

// EnterStandby is called when the host puts the device into standby.
func (t *TrackerDevice) EnterStandby() {
	t.logf("entering standby")
}

// LeaveStandby is called when the host wakes the device from standby.
func (t *TrackerDevice) LeaveStandby() {
	t.logf("leaving standby")
}

func (t *TrackerDevice) runLoop(done chan struct{}) {
	defer close(done)
	for t.active.Load() {
		t.cycle()
		t.clock.Sleep(t.period)
	}
}

// cycle performs one pose update: re-read mode configuration, resolve a
// candidate pose, apply the locking policy, submit. A failed settings read
// or an invalid upstream pose only degrades this cycle; the loop itself
// never stops for a data error.
func (t *TrackerDevice) cycle() {
	t.refreshModeFlags()

	t.host.RawTrackedPoses(0, t.snapshot)

	mode := ModeDirect
	if t.proxyModeEnabled {
		mode = ModeProxy
	}
	current := t.resolver.ComputePose(mode, t.proxyTarget, t.snapshot)

	if !t.poseLockingEnabled {
		t.host.SubmitPose(t.deviceIndex, current)
		return
	}

	if current.Valid {
		t.lastKnownGood = current
		t.hasLastKnownGood = true
	}
	if t.hasLastKnownGood {
		// Once any valid pose has been seen the device never reports
		// invalid again while locking is on.
		t.lastKnownGood.Valid = true
		t.host.SubmitPose(t.deviceIndex, t.lastKnownGood)
	}
}

// refreshModeFlags re-derives pose locking and proxy state from host
// settings. Transitions are logged once per change, not per cycle.
func (t *TrackerDevice) refreshModeFlags() {
	locking := t.settings.PoseLockingEnabled(t.serial)
	if locking != t.poseLockingEnabled {
		t.poseLockingEnabled = locking
		if locking {
			t.logf("pose locking enabled")
		} else {
			t.logf("pose locking disabled")
		}
	}

	target, ok := t.settings.ProxyTarget(t.serial)
	if ok != t.proxyModeEnabled || target != t.proxyTarget {
		if ok {
			t.logf("proxying device index %d", target)
		} else if t.proxyModeEnabled {
			t.logf("proxy mode disabled")
		}
		t.proxyModeEnabled = ok
		t.proxyTarget = target
	}
}
