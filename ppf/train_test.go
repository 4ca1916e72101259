package ppf

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/ppf3d/pointcloud"
)

// asymmetricCloud returns a small point set with an intentionally
// irregular shape (no reflective symmetry) so that PPF votes concentrate
// on a single correct pose rather than splitting across symmetric ones.
func asymmetricCloud() pointcloud.Cloud {
	points := []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1.3, Z: 0},
		{X: 0, Y: 0, Z: 0.7},
		{X: 1, Y: 1.1, Z: 0.2},
		{X: 0.3, Y: 0.9, Z: 1.4},
		{X: 1.2, Y: 0.1, Z: 0.8},
		{X: 0.6, Y: 0.6, Z: 0.1},
		{X: 0.1, Y: 1.2, Z: 0.9},
		{X: 0.9, Y: 0.3, Z: 1.1},
	}
	normals := make([]r3.Vector, len(points))
	centroid := r3.Vector{}
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(points)))
	for i, p := range points {
		normals[i] = p.Sub(centroid).Normalize()
	}
	return pointcloud.NewCloudWithNormals(points, normals)
}

func TestTrainProducesRowsAndHashNodes(t *testing.T) {
	model, err := Train(asymmetricCloud(), DefaultTrainParams())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.M, test.ShouldBeGreaterThan, 0)
	test.That(t, len(model.Rows), test.ShouldBeGreaterThan, 0)
}

func TestTrainDeterministic(t *testing.T) {
	cloud := asymmetricCloud()
	m1, err := Train(cloud, DefaultTrainParams())
	test.That(t, err, test.ShouldBeNil)
	m2, err := Train(cloud, DefaultTrainParams())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, len(m1.Rows), test.ShouldEqual, len(m2.Rows))
	for i := range m1.Rows {
		test.That(t, m1.Rows[i].f, test.ShouldResemble, m2.Rows[i].f)
		test.That(t, m1.Rows[i].alpha, test.ShouldEqual, m2.Rows[i].alpha)
	}
}

func TestTrainRequiresNormals(t *testing.T) {
	cloud := pointcloud.NewCloud([]r3.Vector{{X: 0}, {X: 1}})
	_, err := Train(cloud, DefaultTrainParams())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestComputePPFFeaturesSkipsDegeneratePair(t *testing.T) {
	p := r3.Vector{X: 1, Y: 1, Z: 1}
	n := r3.Vector{X: 1, Y: 0, Z: 0}
	_, ok := computePPFFeatures(p, n, p, n)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestAngleBetweenRange(t *testing.T) {
	a := r3.Vector{X: 1, Y: 0, Z: 0}
	b := r3.Vector{X: -1, Y: 0, Z: 0}
	test.That(t, angleBetween(a, b), test.ShouldAlmostEqual, 3.14159265, 1e-6)
}
