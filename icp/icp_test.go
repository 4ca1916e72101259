package icp

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/ppf3d/pointcloud"
	"go.viam.com/ppf3d/ppf"
	"go.viam.com/ppf3d/spatialmath"
)

// cornerCloud returns points sampled over three mutually orthogonal
// faces of a box corner (normals (1,0,0), (0,1,0), (0,0,1)). Unlike a
// single flat plane, this gives the point-to-plane normal equations'
// rows (m x n, n) three independent normal directions, so the 6x6
// system is full rank and ICP can actually solve for a correction in
// every degree of freedom.
func cornerCloud() pointcloud.Cloud {
	var points, normals []r3.Vector
	for u := 0.0; u <= 3.0; u += 0.5 {
		for v := 0.0; v <= 3.0; v += 0.5 {
			points = append(points, r3.Vector{X: u, Y: v, Z: 0})
			normals = append(normals, r3.Vector{X: 0, Y: 0, Z: 1})

			points = append(points, r3.Vector{X: 0, Y: u, Z: v})
			normals = append(normals, r3.Vector{X: 1, Y: 0, Z: 0})

			points = append(points, r3.Vector{X: u, Y: 0, Z: v})
			normals = append(normals, r3.Vector{X: 0, Y: 1, Z: 0})
		}
	}
	return pointcloud.NewCloudWithNormals(points, normals)
}

func TestNewRegistrarRejectsUnsupportedSampleType(t *testing.T) {
	params := DefaultParams()
	params.SampleType = SampleGelfand
	_, err := NewRegistrar(cornerCloud(), params, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewRegistrarRejectsMultiNeighborCorrespondence(t *testing.T) {
	params := DefaultParams()
	params.NumNeighborsCorr = 2
	_, err := NewRegistrar(cornerCloud(), params, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegisterConvergesFromPerturbedPose(t *testing.T) {
	scene := cornerCloud()
	model := scene

	perturbation := spatialmath.NewPoseFromRT(
		spatialmath.AxisAngleToRotation(r3.Vector{X: 1, Y: 0, Z: 0}, 0.08),
		r3.Vector{X: 0, Y: 0, Z: 0.05},
	)

	params := DefaultParams()
	params.NumLevels = 2
	registrar, err := NewRegistrar(scene, params, nil)
	test.That(t, err, test.ShouldBeNil)

	refined, err := registrar.Register(model, perturbation)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined.Residual, test.ShouldBeLessThan, 0.05)

	z := refined.Matrix.Translation().Z
	test.That(t, math.Abs(z), test.ShouldBeLessThan, 0.05)
}

func TestRejectOutliersDropsFarResiduals(t *testing.T) {
	corrs := []correspondence{
		{residual: 0.01}, {residual: -0.01}, {residual: 0.02}, {residual: 5.0},
	}
	kept, mean := rejectOutliers(corrs, 1.5)
	test.That(t, len(kept), test.ShouldBeLessThan, len(corrs))
	test.That(t, mean, test.ShouldBeLessThan, 1.0)
}

func TestRejectOutliersEmptyInput(t *testing.T) {
	kept, mean := rejectOutliers(nil, 2.5)
	test.That(t, kept, test.ShouldBeNil)
	test.That(t, mean, test.ShouldEqual, 0.0)
}

func TestBuildPyramidFinestLevelIsFullModel(t *testing.T) {
	model := cornerCloud()
	pyramid := buildPyramid(model, 4)
	test.That(t, len(pyramid), test.ShouldEqual, 4)
	test.That(t, len(pyramid[3].Points), test.ShouldEqual, len(model.Points))
	test.That(t, len(pyramid[0].Points), test.ShouldBeLessThan, len(model.Points))
}

func TestRegisterAllRefinesEveryPose(t *testing.T) {
	scene := cornerCloud()
	model := scene

	params := DefaultParams()
	params.NumLevels = 2
	registrar, err := NewRegistrar(scene, params, nil)
	test.That(t, err, test.ShouldBeNil)

	p1 := ppf.NewPose3D(0, 0, 10)
	p1.UpdateFromMatrix(spatialmath.NewPoseFromRT(spatialmath.IdentityRotation(), r3.Vector{X: 0, Y: 0, Z: 0.03}))
	p2 := ppf.NewPose3D(0, 0, 5)
	p2.UpdateFromMatrix(spatialmath.NewPoseFromRT(spatialmath.IdentityRotation(), r3.Vector{X: 0, Y: 0, Z: -0.02}))

	err = registrar.RegisterAll(model, []*ppf.Pose3D{p1, p2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(p1.Matrix.Translation().Z), test.ShouldBeLessThan, 0.03)
	test.That(t, math.Abs(p2.Matrix.Translation().Z), test.ShouldBeLessThan, 0.02)
}
