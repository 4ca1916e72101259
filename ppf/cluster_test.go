package ppf

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/ppf3d/spatialmath"
)

func nearIdenticalPoses(votes []int) []*Pose3D {
	poses := make([]*Pose3D, len(votes))
	base := spatialmath.AxisAngleToRotation(r3.Vector{X: 0, Y: 0, Z: 1}, 0.3)
	for i, v := range votes {
		p := NewPose3D(0, 0, v)
		jitter := spatialmath.AxisAngleToRotation(r3.Vector{X: 0, Y: 0, Z: 1}, 0.001*float64(i))
		p.UpdateFromRT(base.Mul(jitter), r3.Vector{X: 0.001 * float64(i)})
		poses[i] = p
	}
	return poses
}

func TestClusterWeightedFavorsHighVotePose(t *testing.T) {
	poses := nearIdenticalPoses([]int{100, 10, 10, 10, 10})
	rotationThreshold := 0.05
	positionThreshold := 0.05

	clustered := Cluster(poses, positionThreshold, rotationThreshold, true)
	test.That(t, len(clustered), test.ShouldEqual, 1)
	test.That(t, clustered[0].Angle, test.ShouldAlmostEqual, poses[0].Angle, 0.1*rotationThreshold)
}

func TestClusterUnweightedCloseToCentroid(t *testing.T) {
	poses := nearIdenticalPoses([]int{100, 10, 10, 10, 10})
	rotationThreshold := 0.05
	positionThreshold := 0.05

	clustered := Cluster(poses, positionThreshold, rotationThreshold, false)
	test.That(t, len(clustered), test.ShouldEqual, 1)
	test.That(t, clustered[0].Angle, test.ShouldAlmostEqual, poses[0].Angle, 0.5*rotationThreshold)
}

func TestClusterSeparatesDistantPoses(t *testing.T) {
	near := nearIdenticalPoses([]int{50, 40})
	far := NewPose3D(0, 0, 30)
	far.UpdateFromRT(spatialmath.AxisAngleToRotation(r3.Vector{X: 0, Y: 0, Z: 1}, 2.5), r3.Vector{X: 5})

	clustered := Cluster(append(near, far), 0.05, 0.05, true)
	test.That(t, len(clustered), test.ShouldEqual, 2)
}

func TestClusterEmptyInput(t *testing.T) {
	test.That(t, Cluster(nil, 0.1, 0.1, true), test.ShouldBeNil)
}
