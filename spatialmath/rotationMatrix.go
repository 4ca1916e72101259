package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a row-major 3x3 rotation matrix: element (i, j) is
// stored at index 3*i+j.
type RotationMatrix struct {
	data [9]float64
}

// NewRotationMatrix builds a RotationMatrix from nine row-major entries.
func NewRotationMatrix(rowMajor [9]float64) *RotationMatrix {
	return &RotationMatrix{rowMajor}
}

// IdentityRotation returns the identity rotation matrix.
func IdentityRotation() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the (i, j) entry, 0-indexed.
func (r *RotationMatrix) At(i, j int) float64 {
	return r.data[3*i+j]
}

// Array returns the underlying row-major entries.
func (r *RotationMatrix) Array() [9]float64 {
	return r.data
}

// Transpose returns the transpose of r, which for a proper rotation
// matrix is also its inverse.
func (r *RotationMatrix) Transpose() *RotationMatrix {
	d := r.data
	return &RotationMatrix{[9]float64{
		d[0], d[3], d[6],
		d[1], d[4], d[7],
		d[2], d[5], d[8],
	}}
}

// Mul returns r * other.
func (r *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	a, b := r.data, other.data
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[3*i+k] * b[3*k+j]
			}
			out[3*i+j] = sum
		}
	}
	return &RotationMatrix{out}
}

// Apply rotates v by r.
func (r *RotationMatrix) Apply(v r3.Vector) r3.Vector {
	d := r.data
	return r3.Vector{
		X: d[0]*v.X + d[1]*v.Y + d[2]*v.Z,
		Y: d[3]*v.X + d[4]*v.Y + d[5]*v.Z,
		Z: d[6]*v.X + d[7]*v.Y + d[8]*v.Z,
	}
}

// Quaternion converts r to a unit quaternion using Shepperd's method
// (largest-diagonal-term branch selection), ported from the dcmToQuat
// routine in the original surface-matching module's c_utils.
func (r *RotationMatrix) Quaternion() quat.Number {
	m := r.data
	trace := m[0] + m[4] + m[8]

	var w, x, y, z float64
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		w = 0.25 / s
		x = (m[7] - m[5]) * s
		y = (m[2] - m[6]) * s
		z = (m[3] - m[1]) * s
	case m[0] > m[4] && m[0] > m[8]:
		s := 2 * math.Sqrt(1+m[0]-m[4]-m[8])
		w = (m[7] - m[5]) / s
		x = 0.25 * s
		y = (m[1] + m[3]) / s
		z = (m[2] + m[6]) / s
	case m[4] > m[8]:
		s := 2 * math.Sqrt(1+m[4]-m[0]-m[8])
		w = (m[2] - m[6]) / s
		x = (m[1] + m[3]) / s
		y = 0.25 * s
		z = (m[5] + m[7]) / s
	default:
		s := 2 * math.Sqrt(1+m[8]-m[0]-m[4])
		w = (m[3] - m[1]) / s
		x = (m[2] + m[6]) / s
		y = (m[5] + m[7]) / s
		z = 0.25 * s
	}
	return NormalizeQuat(quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z})
}

// AxisAngle returns the axis and angle (radians) this rotation performs.
func (r *RotationMatrix) AxisAngle() (axis r3.Vector, angle float64) {
	aa := QuatToR4AA(r.Quaternion())
	return r3.Vector{X: aa.RX, Y: aa.RY, Z: aa.RZ}, aa.Theta
}

// AxisAngleToRotation builds a rotation matrix from an axis and an angle
// (radians), via Rodrigues' formula. Ported from aaToR in the original
// surface-matching module's c_utils.
func AxisAngleToRotation(axis r3.Vector, angle float64) *RotationMatrix {
	axis = axis.Normalize()
	s, c := math.Sin(angle), math.Cos(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z

	return &RotationMatrix{[9]float64{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	}}
}

// UnitXRotation returns the rotation matrix that carries the +X axis onto
// itself after a rotation of angle radians about +X. Ported from
// getUnitXRotation in the original surface-matching module.
func UnitXRotation(angle float64) *RotationMatrix {
	s, c := math.Sin(angle), math.Cos(angle)
	return &RotationMatrix{[9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}}
}
