package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestQuaternionRotationRoundTrip(t *testing.T) {
	axis := r3.Vector{X: 1, Y: 2, Z: 3}.Normalize()
	angle := 0.7
	r := AxisAngleToRotation(axis, angle)

	q := r.Quaternion()
	r2 := QuatToRotationMatrix(q)

	for i := 0; i < 9; i++ {
		test.That(t, r2.data[i], test.ShouldAlmostEqual, r.data[i], 1e-9)
	}
}

func TestRotationMatrixOrthogonal(t *testing.T) {
	r := AxisAngleToRotation(r3.Vector{X: 0, Y: 0, Z: 1}, math.Pi/3)
	rt := r.Transpose()
	identity := r.Mul(rt)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			test.That(t, identity.At(i, j), test.ShouldAlmostEqual, expected, 1e-9)
		}
	}
}

func TestPoseComposeInverse(t *testing.T) {
	r := AxisAngleToRotation(r3.Vector{X: 1, Y: 0, Z: 0}, 0.4)
	p := NewPoseFromRT(r, r3.Vector{X: 1, Y: 2, Z: 3})

	identity := p.Compose(p.Inverse())
	arr := identity.Array()
	want := IdentityPose().Array()
	for i := range arr {
		test.That(t, arr[i], test.ShouldAlmostEqual, want[i], 1e-9)
	}
}

func TestPoseTransformPoint(t *testing.T) {
	p := NewPoseFromRT(IdentityRotation(), r3.Vector{X: 1, Y: 0, Z: 0})
	out := p.TransformPoint(r3.Vector{X: 0, Y: 0, Z: 0})
	test.That(t, out.X, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestUnitXRotationPreservesXAxis(t *testing.T) {
	r := UnitXRotation(1.1)
	out := r.Apply(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, out.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, out.Y, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestQuaternionAlmostEqualDoubleCover(t *testing.T) {
	q := IdentityRotation().Quaternion()
	negQ := q
	negQ.Real, negQ.Imag, negQ.Jmag, negQ.Kmag = -q.Real, -q.Imag, -q.Jmag, -q.Kmag
	test.That(t, QuaternionAlmostEqual(q, negQ, 1e-9), test.ShouldBeTrue)
}
