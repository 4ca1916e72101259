package pointcloud

import (
	"bytes"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func cube() Cloud {
	var pts []r3.Vector
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				pts = append(pts, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	return NewCloud(pts)
}

func TestComputeBoundingBox(t *testing.T) {
	box, err := ComputeBoundingBox(cube())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
	test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
}

func TestComputeBoundingBoxEmpty(t *testing.T) {
	_, err := ComputeBoundingBox(Cloud{})
	test.That(t, err, test.ShouldEqual, ErrEmptyCloud)
}

func TestDownsampleQuantizedIdempotent(t *testing.T) {
	c := cube()
	once, err := DownsampleQuantized(c, 0.5, false)
	test.That(t, err, test.ShouldBeNil)
	twice, err := DownsampleQuantized(once, 0.5, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, twice.Size(), test.ShouldEqual, once.Size())
}

func TestDownsampleUniformStride(t *testing.T) {
	c := cube()
	out := DownsampleUniform(c, 2)
	test.That(t, out.Size(), test.ShouldEqual, 4)
}

func TestKDTreeNearestNeighbor(t *testing.T) {
	c := cube()
	tree, err := BuildKDTree(c)
	test.That(t, err, test.ShouldBeNil)
	idx, _ := tree.NearestNeighbor(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})
	test.That(t, tree.Points()[idx], test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
}

func TestEstimateNormalsFlipToViewpoint(t *testing.T) {
	c := cube()
	viewpoint := r3.Vector{X: 10, Y: 10, Z: 10}
	out, err := EstimateNormals(c, 4, viewpoint)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.HasNormals(), test.ShouldBeTrue)
	for i, n := range out.Normals {
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1.0, 1e-6)
		test.That(t, n.Dot(viewpoint.Sub(out.Points[i])), test.ShouldBeGreaterThanOrEqualTo, 0.0)
	}
}

func TestPLYRoundTrip(t *testing.T) {
	c := cube()
	var buf bytes.Buffer
	test.That(t, WritePLY(&buf, c), test.ShouldBeNil)

	back, err := ReadPLY(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Size(), test.ShouldEqual, c.Size())
	for i := range c.Points {
		test.That(t, back.Points[i].X, test.ShouldAlmostEqual, c.Points[i].X, 1e-6)
	}
}
