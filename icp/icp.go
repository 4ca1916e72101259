// Package icp implements multi-resolution point-to-plane ICP with
// statistical outlier rejection ("picky" ICP), refining a candidate pose
// produced by the ppf package against a scene point cloud.
package icp

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/ppf3d/pointcloud"
	"go.viam.com/ppf3d/ppf"
	"go.viam.com/ppf3d/spatialmath"
)

// SampleType selects how each pyramid level is built. Only SampleUniform
// is implemented; the enum is preserved for contract fidelity with the
// original surface-matching module's ICP parameter surface.
type SampleType int

const (
	// SampleUniform downsamples by fixed stride.
	SampleUniform SampleType = iota
	// SampleGelfand selects points by a curvature-based heuristic in the
	// original surface-matching module. Not implemented; constructing a
	// Registrar with this value returns ErrUnsupported.
	SampleGelfand
)

var (
	// ErrIllConditioned marks a level whose 6x6 normal equations cannot
	// be Cholesky-factorized: the failing iteration leaves the pose
	// unchanged and that level stops iterating. Register and RegisterAll
	// treat it as non-fatal and do not return it.
	ErrIllConditioned = errors.New("icp: normal equations are ill-conditioned")
	// ErrUnsupported is returned by NewRegistrar for parameter
	// combinations the original surface-matching module accepts but
	// documents as ignored (non-uniform sampling, more than one
	// correspondence per point).
	ErrUnsupported = errors.New("icp: unsupported parameter combination")
)

// Params configures the ICP refiner. Defaults match the original
// surface-matching module's ICP class, except Tolerance, which follows
// the detector's recognized configuration (0.005) rather than the
// original header's default (0.05).
type Params struct {
	MaxIterations    int
	Tolerance        float64
	RejectionScale   float64
	NumLevels        int
	SampleType       SampleType
	NumNeighborsCorr int
}

// DefaultParams returns the detector's recognized ICP configuration.
func DefaultParams() Params {
	return Params{
		MaxIterations:    250,
		Tolerance:        0.005,
		RejectionScale:   2.5,
		NumLevels:        6,
		SampleType:       SampleUniform,
		NumNeighborsCorr: 1,
	}
}

// Registrar refines candidate poses against a fixed scene cloud. The
// scene's KD-tree is built once at construction and reused across every
// Register/RegisterAll call, since correspondence search is the
// dominant cost of each ICP iteration.
type Registrar struct {
	scene     pointcloud.Cloud
	sceneTree *pointcloud.KDTree
	params    Params
	logger    *zap.SugaredLogger
}

// NewRegistrar validates params, builds scene's KD-tree, and returns a
// Registrar. Only SampleUniform and NumNeighborsCorr == 1 ("picky" ICP)
// are implemented; any other combination returns ErrUnsupported rather
// than being silently ignored.
func NewRegistrar(scene pointcloud.Cloud, params Params, logger *zap.SugaredLogger) (*Registrar, error) {
	if params.SampleType != SampleUniform {
		return nil, errors.Wrap(ErrUnsupported, "only SampleUniform is implemented")
	}
	if params.NumNeighborsCorr != 1 {
		return nil, errors.Wrap(ErrUnsupported, "only NumNeighborsCorr == 1 (picky ICP) is implemented")
	}
	if !scene.HasNormals() {
		return nil, errors.New("icp: scene cloud must carry normals for point-to-plane registration")
	}
	sceneTree, err := pointcloud.BuildKDTree(scene)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 1
	}
	if params.NumLevels <= 0 {
		params.NumLevels = 1
	}
	return &Registrar{scene: scene, sceneTree: sceneTree, params: params, logger: logger}, nil
}

// Register refines a single candidate pose, returning a new Pose3D with
// the converged pose and its final mean |residual|.
func (r *Registrar) Register(model pointcloud.Cloud, initial *spatialmath.Pose) (*ppf.Pose3D, error) {
	pose, residual, err := r.refine(model, initial)
	if err != nil && !errors.Is(err, ErrIllConditioned) {
		return nil, err
	}

	out := ppf.NewPose3D(0, 0, 0)
	out.UpdateFromMatrix(pose)
	out.Residual = residual
	return out, nil
}

// RegisterAll refines every pose in initial in place against the
// registrar's scene.
func (r *Registrar) RegisterAll(model pointcloud.Cloud, initial []*ppf.Pose3D) error {
	for _, p := range initial {
		pose, residual, err := r.refine(model, p.Matrix)
		if err != nil && !errors.Is(err, ErrIllConditioned) {
			return err
		}
		p.UpdateFromMatrix(pose)
		p.Residual = residual
	}
	return nil
}

// refine runs the coarse-to-fine pyramid loop described in the ICP
// refiner's contract, returning the converged pose and the finest
// level's mean |residual|.
func (r *Registrar) refine(model pointcloud.Cloud, initial *spatialmath.Pose) (*spatialmath.Pose, float64, error) {
	pyramid := buildPyramid(model, r.params.NumLevels)

	pose := initial
	var meanResidual float64
	var illConditioned error

	for level := 0; level < len(pyramid); level++ {
		levelCloud := pyramid[level]
		prevMean := math.Inf(1)

		for iter := 0; iter < r.params.MaxIterations; iter++ {
			corrs := correspondences(levelCloud, pose, r.scene, r.sceneTree)
			corrs, mean := rejectOutliers(corrs, r.params.RejectionScale)
			meanResidual = mean

			if len(corrs) == 0 {
				break
			}

			delta, err := solveNormalEquations(corrs)
			if err != nil {
				illConditioned = err
				break
			}

			pose = composeDelta(pose, delta)

			if math.Abs(mean-prevMean) < r.params.Tolerance {
				break
			}
			prevMean = mean
		}
	}

	return pose, meanResidual, illConditioned
}

// buildPyramid returns numLevels clouds from coarsest to finest, each
// roughly halving the point count of the previous, with the finest level
// being the full-resolution model.
func buildPyramid(model pointcloud.Cloud, numLevels int) []pointcloud.Cloud {
	levels := make([]pointcloud.Cloud, numLevels)
	levels[numLevels-1] = model
	stride := 1 << uint(numLevels-1)
	for i := 0; i < numLevels-1; i++ {
		levels[i] = pointcloud.DownsampleUniform(model, stride)
		stride /= 2
		if stride < 1 {
			stride = 1
		}
	}
	return levels
}

type correspondence struct {
	modelPoint  r3.Vector
	sceneNormal r3.Vector
	residual    float64
}

// correspondences transforms levelCloud by pose and finds each point's
// nearest neighbour in scene, keeping the scene normal as the plane
// normal and computing the point-to-plane residual.
func correspondences(
	levelCloud pointcloud.Cloud,
	pose *spatialmath.Pose,
	scene pointcloud.Cloud,
	sceneTree *pointcloud.KDTree,
) []correspondence {
	out := make([]correspondence, 0, len(levelCloud.Points))
	for _, m := range levelCloud.Points {
		transformed := pose.TransformPoint(m)
		idx, _ := sceneTree.NearestNeighbor(transformed)
		if idx < 0 {
			continue
		}
		s := scene.Points[idx]
		var n r3.Vector
		if scene.HasNormals() {
			n = scene.Normals[idx]
		}
		residual := n.Dot(transformed.Sub(s))
		out = append(out, correspondence{modelPoint: transformed, sceneNormal: n, residual: residual})
	}
	return out
}

// rejectOutliers returns correspondences whose residual is within
// rejectionScale standard deviations of the mean |residual|, along with
// the mean |residual| of the surviving set.
func rejectOutliers(corrs []correspondence, rejectionScale float64) ([]correspondence, float64) {
	if len(corrs) == 0 {
		return nil, 0
	}

	var sum float64
	for _, c := range corrs {
		sum += math.Abs(c.residual)
	}
	mean := sum / float64(len(corrs))

	var variance float64
	for _, c := range corrs {
		d := math.Abs(c.residual) - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(corrs)))

	kept := make([]correspondence, 0, len(corrs))
	var keptSum float64
	for _, c := range corrs {
		if math.Abs(math.Abs(c.residual)-mean) <= rejectionScale*stddev {
			kept = append(kept, c)
			keptSum += math.Abs(c.residual)
		}
	}
	if len(kept) == 0 {
		return kept, 0
	}
	return kept, keptSum / float64(len(kept))
}

// solveNormalEquations solves the linearized point-to-plane system for a
// small rotation delta and translation delta, with A_k = [(m_k x n_k), n_k]
// and right-hand side -sum(A_k^T r_k), via Cholesky factorization of the
// 6x6 normal equations.
func solveNormalEquations(corrs []correspondence) ([6]float64, error) {
	var ata mat.SymDense = *mat.NewSymDense(6, nil)
	atb := make([]float64, 6)

	for _, c := range corrs {
		cross := c.modelPoint.Cross(c.sceneNormal)
		a := [6]float64{cross.X, cross.Y, cross.Z, c.sceneNormal.X, c.sceneNormal.Y, c.sceneNormal.Z}

		for i := 0; i < 6; i++ {
			for j := i; j < 6; j++ {
				ata.SetSym(i, j, ata.At(i, j)+a[i]*a[j])
			}
			atb[i] -= a[i] * c.residual
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return [6]float64{}, ErrIllConditioned
	}

	b := mat.NewVecDense(6, atb)
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return [6]float64{}, errors.Wrap(ErrIllConditioned, err.Error())
	}

	var delta [6]float64
	for i := 0; i < 6; i++ {
		delta[i] = x.AtVec(i)
	}
	return delta, nil
}

// composeDelta left-multiplies the small-angle rotation/translation delta
// (rotation first, as rodrigues parameters; translation second) onto
// pose.
func composeDelta(pose *spatialmath.Pose, delta [6]float64) *spatialmath.Pose {
	axis := r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}
	angle := axis.Norm()

	var rot *spatialmath.RotationMatrix
	if angle < 1e-12 {
		rot = spatialmath.IdentityRotation()
	} else {
		rot = spatialmath.AxisAngleToRotation(axis.Mul(1/angle), angle)
	}
	translation := r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]}

	incremental := spatialmath.NewPoseFromRT(rot, translation)
	return incremental.Compose(pose)
}
