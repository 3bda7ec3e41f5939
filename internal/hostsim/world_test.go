package hostsim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qashinka/PoseLockTool/internal/driver"
)

func TestWorldSetAndSnapshot(t *testing.T) {
	w := NewWorld()
	pose := driver.TrackedPose{
		Valid:       true,
		Result:      driver.TrackingResultRunningOK,
		Position:    driver.Vec3{1, 2, 3},
		Orientation: driver.QuatIdentity(),
	}
	w.SetPose(3, pose)

	out := make([]driver.TrackedPose, driver.MaxTrackedDevices)
	w.Snapshot(out)

	assert.Equal(t, pose, out[3])
	assert.False(t, out[0].Valid, "untouched slots stay invalid")
	assert.Equal(t, pose, w.Pose(3))
}

func TestWorldInvalidate(t *testing.T) {
	w := NewWorld()
	w.SetPose(1, driver.TrackedPose{Valid: true})
	w.Invalidate(1)

	assert.False(t, w.Pose(1).Valid)
}

func TestWorldIgnoresOutOfRange(t *testing.T) {
	w := NewWorld()
	w.SetPose(driver.MaxTrackedDevices+1, driver.TrackedPose{Valid: true})
	w.Invalidate(driver.DeviceIndexInvalid)

	assert.False(t, w.Pose(driver.MaxTrackedDevices+1).Valid)
}

func TestWorldSnapshotShortBuffer(t *testing.T) {
	w := NewWorld()
	w.SetPose(0, driver.TrackedPose{Valid: true})

	out := make([]driver.TrackedPose, 2)
	w.Snapshot(out)
	assert.True(t, out[0].Valid)
}

func TestHeadMotionPath(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewHeadMotion(start)
	m.BobAmplitude = 0

	p0 := m.PoseAt(start)
	require.True(t, p0.Valid)
	assert.Equal(t, driver.TrackingResultRunningOK, p0.Result)
	assert.InDelta(t, 0, p0.Position[0], 1e-9)
	assert.InDelta(t, m.EyeHeight, p0.Position[1], 1e-9)
	assert.InDelta(t, -m.OrbitRadius, p0.Position[2], 1e-9)

	// A quarter of the orbit later the head is at +X facing +90 degrees.
	quarter := m.PoseAt(start.Add(m.OrbitPeriod / 4))
	assert.InDelta(t, m.OrbitRadius, quarter.Position[0], 1e-9)
	assert.InDelta(t, 0, quarter.Position[2], 1e-9)
	assert.InDelta(t, math.Sin(math.Pi/4), quarter.Orientation.Jmag, 1e-9)
}

func TestHeadMotionJitterBounded(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	nominal := NewHeadMotion(start)
	nominal.BobAmplitude = 0

	jittered := NewHeadMotion(start)
	jittered.BobAmplitude = 0
	jittered.Jitter = 0.05

	for i := 0; i < 50; i++ {
		at := start.Add(time.Duration(i) * 100 * time.Millisecond)
		want := nominal.PoseAt(at).Position
		got := jittered.PoseAt(at).Position
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want[c], got[c], 0.05+1e-9)
		}
	}
}
