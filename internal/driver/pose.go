package driver

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Vec3 is a position or offset in metres, in the host's tracking space.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() quat.Number {
	return quat.Number{Real: 1}
}

// QuatFromAxisAngle returns the rotation of angle radians about axis. The
// axis is normalised; a zero axis yields the identity.
func QuatFromAxisAngle(axis Vec3, angle float64) quat.Number {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return QuatIdentity()
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis[0] * s,
		Jmag: axis[1] * s,
		Kmag: axis[2] * s,
	}
}

// Rotate applies the unit rotation q to v, computing q·v·q*.
func Rotate(q quat.Number, v Vec3) Vec3 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return Vec3{r.Imag, r.Jmag, r.Kmag}
}

// TrackedPose is the host's view of one tracked device, as read from a pose
// snapshot.
type TrackedPose struct {
	Valid       bool
	Result      TrackingResult
	Position    Vec3
	Orientation quat.Number
}

// DriverPose is one pose update submitted to the host. The frame-adjustment
// rotations must always be well-formed quaternions or the host discards the
// device, so construct values with NewDriverPose rather than a zero literal.
type DriverPose struct {
	WorldFromDriverRotation quat.Number
	DriverFromHeadRotation  quat.Number
	Connected               bool
	Valid                   bool
	Result                  TrackingResult
	Position                Vec3
	Orientation             quat.Number
}

// NewDriverPose returns a pose with identity rotations and the device marked
// connected. Validity and tracking result are left for the caller to set.
func NewDriverPose() DriverPose {
	return DriverPose{
		WorldFromDriverRotation: QuatIdentity(),
		DriverFromHeadRotation:  QuatIdentity(),
		Orientation:             QuatIdentity(),
		Connected:               true,
	}
}
