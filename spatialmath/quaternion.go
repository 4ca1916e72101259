package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// QuaternionAlmostEqual returns whether two quaternions represent
// approximately the same rotation, accounting for the double cover of
// SO(3) by the unit quaternions (q and -q are the same rotation).
func QuaternionAlmostEqual(q1, q2 quat.Number, tol float64) bool {
	if quatClose(q1, q2, tol) {
		return true
	}
	return quatClose(q1, quat.Scale(-1, q2), tol)
}

func quatClose(q1, q2 quat.Number, tol float64) bool {
	return math.Abs(q1.Real-q2.Real) < tol &&
		math.Abs(q1.Imag-q2.Imag) < tol &&
		math.Abs(q1.Jmag-q2.Jmag) < tol &&
		math.Abs(q1.Kmag-q2.Kmag) < tol
}

// NormalizeQuat returns q scaled to unit norm. Panics if q has zero norm,
// mirroring R4AA.Normalize's treatment of a caller error.
func NormalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		panic("cannot normalize zero quaternion")
	}
	return quat.Scale(1/n, q)
}

// QuatToR4AA converts a unit quaternion to an axis-angle representation.
func QuatToR4AA(q quat.Number) *R4AA {
	q = NormalizeQuat(q)
	theta := 2 * math.Acos(clamp(q.Real, -1, 1))
	s := math.Sqrt(1 - q.Real*q.Real)
	if s < 1e-9 {
		return &R4AA{0, 0, 0, 1}
	}
	return &R4AA{theta, q.Imag / s, q.Jmag / s, q.Kmag / s}
}

// QuatToRotationMatrix converts a unit quaternion to a row-major 3x3
// rotation matrix, the inverse of RotationMatrix.Quaternion. Ported from
// the dcmToQuat/quatToDCM pairing used for Pose3D's internal quaternion
// cache in the original surface-matching module.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	q = NormalizeQuat(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	return &RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
