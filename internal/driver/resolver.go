package driver

// Mode selects how a tracker's pose is derived.
type Mode int

const (
	// ModeDirect places the tracker at a fixed offset in the headset's
	// local frame.
	ModeDirect Mode = iota

	// ModeProxy copies the pose of another tracked device.
	ModeProxy
)

func (m Mode) String() string {
	if m == ModeProxy {
		return "proxy"
	}
	return "direct"
}

// Resolver computes the pose one virtual tracker should currently report.
// It holds only the tracker id and is safe to call from any goroutine:
// ComputePose is deterministic and has no side effects.
type Resolver struct {
	trackerID uint32
}

// NewResolver returns a resolver for the tracker with the given id. The id
// selects the lateral offset used in direct mode.
func NewResolver(trackerID uint32) *Resolver {
	return &Resolver{trackerID: trackerID}
}

// Offset returns the tracker's position in the headset's local frame, used
// in direct mode.
func (r *Resolver) Offset() Vec3 {
	return Vec3{
		-0.15 + float64(r.trackerID)*0.15, // spread trackers laterally by id
		0.1,                               // lift a little into view
		-0.5,                              // half a metre in front of the head
	}
}

// ComputePose resolves the tracker's pose from a host pose snapshot.
//
// In proxy mode the target's validity, tracking result, position and
// orientation are copied verbatim. A target handle outside the snapshot is
// treated as "no valid target" and yields an invalid pose; it is never
// dereferenced.
//
// In direct mode the pose is the headset pose translated by Offset in the
// headset's local frame. An invalid headset pose yields an invalid pose with
// no further computation.
//
// Every result carries well-formed rotation quaternions regardless of
// validity.
func (r *Resolver) ComputePose(mode Mode, proxyTarget DeviceIndex, poses []TrackedPose) DriverPose {
	pose := NewDriverPose()

	if mode == ModeProxy {
		if proxyTarget == DeviceIndexInvalid || int(proxyTarget) >= len(poses) {
			pose.Valid = false
			pose.Result = TrackingResultUninitialized
			return pose
		}
		target := poses[proxyTarget]
		pose.Valid = target.Valid
		pose.Result = target.Result
		pose.Position = target.Position
		pose.Orientation = target.Orientation
		return pose
	}

	if int(DeviceIndexHMD) >= len(poses) || !poses[DeviceIndexHMD].Valid {
		pose.Valid = false
		pose.Result = TrackingResultUninitialized
		return pose
	}

	head := poses[DeviceIndexHMD]
	pose.Position = head.Position.Add(Rotate(head.Orientation, r.Offset()))
	pose.Orientation = head.Orientation
	pose.Valid = true
	pose.Result = TrackingResultRunningOK
	return pose
}
