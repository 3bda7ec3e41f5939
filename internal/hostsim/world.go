package hostsim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/qashinka/PoseLockTool/internal/driver"
)

// World is the table of tracked-device poses the host hands to device update
// loops. Slot driver.DeviceIndexHMD is the headset; a simulator goroutine
// feeds it from a HeadMotion generator or a scripted Scenario.
type World struct {
	mu    sync.RWMutex
	poses [driver.MaxTrackedDevices]driver.TrackedPose
}

// NewWorld returns a world with every slot invalid.
func NewWorld() *World {
	return &World{}
}

// SetPose stores the pose for one device slot. Out-of-range indices are
// ignored.
func (w *World) SetPose(index driver.DeviceIndex, pose driver.TrackedPose) {
	if int(index) >= len(w.poses) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poses[index] = pose
}

// Invalidate marks one slot as untracked.
func (w *World) Invalidate(index driver.DeviceIndex) {
	if int(index) >= len(w.poses) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poses[index] = driver.TrackedPose{}
}

// Snapshot copies the pose table into out, up to len(out) entries.
func (w *World) Snapshot(out []driver.TrackedPose) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	copy(out, w.poses[:])
}

// Pose returns the current pose for one slot.
func (w *World) Pose(index driver.DeviceIndex) driver.TrackedPose {
	if int(index) >= len(w.poses) {
		return driver.TrackedPose{}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.poses[index]
}

// HeadMotion generates a synthetic headset path: a circular walk at eye
// height with a vertical bob, yawing to face along the orbit.
type HeadMotion struct {
	// Configuration
	OrbitRadius  float64       // metres from the play-space centre
	OrbitPeriod  time.Duration // time for one full circuit
	EyeHeight    float64       // metres
	BobAmplitude float64       // metres of vertical movement
	BobPeriod    time.Duration
	Jitter       float64 // metres of uniform positional noise

	// Internal state
	start time.Time
	rng   *rand.Rand
}

// NewHeadMotion creates a generator with a plausible standing-height path.
func NewHeadMotion(start time.Time) *HeadMotion {
	return &HeadMotion{
		OrbitRadius:  1.2,
		OrbitPeriod:  12 * time.Second,
		EyeHeight:    1.7,
		BobAmplitude: 0.03,
		BobPeriod:    900 * time.Millisecond,
		Jitter:       0,
		start:        start,
		rng:          rand.New(rand.NewSource(start.UnixNano())),
	}
}

// PoseAt returns the headset pose at time t. The pose is always valid.
func (m *HeadMotion) PoseAt(t time.Time) driver.TrackedPose {
	elapsed := t.Sub(m.start).Seconds()
	angle := 2 * math.Pi * elapsed / m.OrbitPeriod.Seconds()
	bob := m.BobAmplitude * math.Sin(2*math.Pi*elapsed/m.BobPeriod.Seconds())

	pos := driver.Vec3{
		m.OrbitRadius * math.Sin(angle),
		m.EyeHeight + bob,
		-m.OrbitRadius * math.Cos(angle),
	}
	if m.Jitter > 0 {
		for i := range pos {
			pos[i] += (m.rng.Float64()*2 - 1) * m.Jitter
		}
	}

	return driver.TrackedPose{
		Valid:       true,
		Result:      driver.TrackingResultRunningOK,
		Position:    pos,
		Orientation: driver.QuatFromAxisAngle(driver.Vec3{0, 1, 0}, angle),
	}
}
