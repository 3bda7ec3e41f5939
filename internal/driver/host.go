// Package driver implements the virtual tracker devices exposed to a VR
// runtime: pose resolution (head-relative or proxied from another tracked
// device), the optional pose-locking fallback, and the per-device update
// loops that submit poses to the host on a fixed cadence.
//
// The host runtime is abstracted as the Host capability set so the devices
// can be driven by a real runtime adapter or by the reference host in
// internal/hostsim.
package driver

// DeviceIndex is the host's handle for a tracked device. Index 0 is always
// the headset.
type DeviceIndex uint32

const (
	// DeviceIndexHMD is the reference (headset) slot in a pose snapshot.
	DeviceIndexHMD DeviceIndex = 0

	// DeviceIndexInvalid means "no device".
	DeviceIndexInvalid = ^DeviceIndex(0)

	// MaxTrackedDevices is the size of a full host pose snapshot.
	MaxTrackedDevices = 64
)

// TrackingResult reports the tracking state carried alongside a pose.
type TrackingResult int32

const (
	TrackingResultUninitialized         TrackingResult = 1
	TrackingResultCalibratingInProgress TrackingResult = 100
	TrackingResultRunningOK             TrackingResult = 200
	TrackingResultRunningOutOfRange     TrackingResult = 201
)

func (r TrackingResult) String() string {
	switch r {
	case TrackingResultUninitialized:
		return "uninitialized"
	case TrackingResultCalibratingInProgress:
		return "calibrating"
	case TrackingResultRunningOK:
		return "running_ok"
	case TrackingResultRunningOutOfRange:
		return "running_out_of_range"
	default:
		return "unknown"
	}
}

// DeviceClass categorises a registered device.
type DeviceClass int32

const (
	DeviceClassInvalid        DeviceClass = 0
	DeviceClassHMD            DeviceClass = 1
	DeviceClassController     DeviceClass = 2
	DeviceClassGenericTracker DeviceClass = 3
)

// Property identifies a device property settable on the host.
type Property int32

const (
	PropertyModelNumber      Property = 1003
	PropertyInputProfilePath Property = 6000
)

// InputHandle identifies one input component created on the host.
type InputHandle uint64

// InputHandleInvalid is the zero, never-valid input handle.
const InputHandleInvalid InputHandle = 0

// EventType identifies a host event.
type EventType uint32

const (
	EventTrackedDeviceActivated   EventType = 100
	EventTrackedDeviceDeactivated EventType = 101
	EventEnterStandby             EventType = 106
	EventLeaveStandby             EventType = 107
)

// Event is one entry from the host event queue.
type Event struct {
	Type       EventType
	Index      DeviceIndex
	AgeSeconds float64
}

// PoseSource supplies snapshots of the host's currently known device poses.
type PoseSource interface {
	// RawTrackedPoses fills out with the host's view of every tracked
	// device, up to len(out) entries. Slot DeviceIndexHMD is the headset.
	RawTrackedPoses(predictedSecondsFromNow float64, out []TrackedPose)
}

// PoseSink accepts pose updates from devices. Submission is fire-and-forget;
// the core never awaits a result.
type PoseSink interface {
	SubmitPose(index DeviceIndex, pose DriverPose)
}

// Settings reads host configuration. Absence of a key is a normal,
// non-fatal outcome reported through the bool.
type Settings interface {
	Int32(section, key string) (int32, bool)
	String(section, key string) (string, bool)
}

// DeviceRegistrar accepts one-time device registration at startup.
type DeviceRegistrar interface {
	RegisterDevice(serial string, class DeviceClass, dev Device) error
}

// Properties sets per-device properties on the host.
type Properties interface {
	SetStringProperty(index DeviceIndex, prop Property, value string)
}

// InputSource creates and updates input components for a device.
type InputSource interface {
	CreateBoolComponent(index DeviceIndex, path string) (InputHandle, error)
	CreateScalarComponent(index DeviceIndex, path string) (InputHandle, error)
	UpdateBoolComponent(h InputHandle, value bool)
	UpdateScalarComponent(h InputHandle, value float64)
}

// EventSource drains the host's event queue. ok is false once the queue is
// empty for this frame.
type EventSource interface {
	PollNextEvent() (ev Event, ok bool)
}

// Host is the full capability set the driver consumes from its runtime,
// supplied at construction.
type Host interface {
	PoseSource
	PoseSink
	Settings
	DeviceRegistrar
	Properties
	InputSource
	EventSource
}

// Device is what the driver exposes back to the host for each tracker. All
// methods are synchronous and called from the host's own thread; calls for
// one device never overlap.
type Device interface {
	SerialNumber() string
	Activate(index DeviceIndex) error
	Deactivate()
	RunFrame()
	ProcessEvent(ev Event)
	EnterStandby()
	LeaveStandby()
}
