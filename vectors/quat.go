package vectors

import "math"

const degenerateNorm = 1e-15

// Quat is a rotation quaternion w + xi + yj + zk.
// The zero value has zero norm and rotates nothing.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the unit quaternion that leaves vectors unchanged.
func Identity() Quat {
	return Quat{W: 1}
}

// FromAxisAngle returns the rotation by angle (radians) around axis.
// A zero axis yields the zero (no-op) quaternion.
func FromAxisAngle(angle float64, axis Vec3) Quat {
	axis = axis.Normalize()
	if axis == (Vec3{}) {
		return Quat{}
	}
	half := angle / 2.0
	s := math.Sin(half)
	return Quat{
		W: math.Cos(half),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

func (q Quat) Scale(s float64) Quat {
	return Quat{q.W * s, q.X * s, q.Y * s, q.Z * s}
}

// Normalize returns q / ||q||. Degenerate quaternions are returned unchanged.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n < degenerateNorm {
		return q
	}
	return q.Scale(1.0 / n)
}

// Conjugate returns (w, -x, -y, -z), the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{q.W, -q.X, -q.Y, -q.Z}
}

// IsDegenerate reports whether q is too close to zero to describe a rotation.
func (q Quat) IsDegenerate() bool {
	return q.Norm() < degenerateNorm
}
