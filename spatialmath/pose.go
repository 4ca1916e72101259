package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Pose is a rigid transform: a row-major 4x4 homogeneous matrix with the
// bottom row fixed at [0 0 0 1]. Element (i, j) is stored at index 4*i+j,
// so the translation lives at indices 3, 7, 11.
type Pose struct {
	data [16]float64
}

// IdentityPose returns the identity transform.
func IdentityPose() *Pose {
	return NewPoseFromRT(IdentityRotation(), r3.Vector{})
}

// NewPoseFromRT builds a Pose from a rotation and a translation.
func NewPoseFromRT(r *RotationMatrix, t r3.Vector) *Pose {
	m := r.data
	return &Pose{[16]float64{
		m[0], m[1], m[2], t.X,
		m[3], m[4], m[5], t.Y,
		m[6], m[7], m[8], t.Z,
		0, 0, 0, 1,
	}}
}

// NewPoseFromMatrix builds a Pose from sixteen row-major entries. The
// bottom row is not checked; callers are expected to pass a rigid
// transform.
func NewPoseFromMatrix(rowMajor [16]float64) *Pose {
	return &Pose{rowMajor}
}

// Array returns the underlying row-major entries.
func (p *Pose) Array() [16]float64 {
	return p.data
}

// Rotation returns the rotational part of p.
func (p *Pose) Rotation() *RotationMatrix {
	d := p.data
	return &RotationMatrix{[9]float64{
		d[0], d[1], d[2],
		d[4], d[5], d[6],
		d[8], d[9], d[10],
	}}
}

// Translation returns the translational part of p.
func (p *Pose) Translation() r3.Vector {
	return r3.Vector{X: p.data[3], Y: p.data[7], Z: p.data[11]}
}

// Compose returns the transform equivalent to applying other first, then
// p: p.Compose(other) == p * other in matrix terms. This mirrors
// Pose3D::appendPose's left-multiply convention in the original
// surface-matching module.
func (p *Pose) Compose(other *Pose) *Pose {
	a, b := p.data, other.data
	var out [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[4*i+k] * b[4*k+j]
			}
			out[4*i+j] = sum
		}
	}
	return &Pose{out}
}

// Inverse returns the inverse of a rigid transform: R^T, -R^T*t.
func (p *Pose) Inverse() *Pose {
	rt := p.Rotation().Transpose()
	t := p.Translation()
	negRtT := rt.Apply(t).Mul(-1)
	return NewPoseFromRT(rt, negRtT)
}

// TransformPoint applies p to v as a homogeneous point (perspective
// divide by the resulting w, which is always 1 for a rigid transform but
// is still computed for contract fidelity with the original's
// matrixProduct441 usage).
func (p *Pose) TransformPoint(v r3.Vector) r3.Vector {
	d := p.data
	x := d[0]*v.X + d[1]*v.Y + d[2]*v.Z + d[3]
	y := d[4]*v.X + d[5]*v.Y + d[6]*v.Z + d[7]
	z := d[8]*v.X + d[9]*v.Y + d[10]*v.Z + d[11]
	w := d[12]*v.X + d[13]*v.Y + d[14]*v.Z + d[15]
	if w == 0 || w == 1 {
		return r3.Vector{X: x, Y: y, Z: z}
	}
	return r3.Vector{X: x / w, Y: y / w, Z: z / w}
}

// TransformDirection applies only the rotational part of p to v, leaving
// translation out, for transforming normal vectors.
func (p *Pose) TransformDirection(v r3.Vector) r3.Vector {
	return p.Rotation().Apply(v)
}
