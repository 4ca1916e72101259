package ppf

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/ppf3d/pointcloud"
	"go.viam.com/ppf3d/spatialmath"
)

// Match runs the detector's matching stage: for every sampled scene
// reference point it casts Hough-style votes into a fresh accumulator
// against the trained model, and reconstructs the highest-voted candidate
// pose. Reference points are processed in parallel (each owns its own
// accumulator and writes to a disjoint output slot, per the detector's
// concurrency model). The raw candidates are returned unclustered, in
// reference order; Detector.Match clusters them.
func (m *Model) Match(
	ctx context.Context,
	scene pointcloud.Cloud,
	relativeSceneSampleStep, relativeSceneDistance float64,
) ([]*Pose3D, error) {
	if !scene.HasNormals() {
		return nil, errors.New("ppf: scene cloud must carry normals for matching")
	}

	sampled, err := pointcloud.DownsampleQuantized(scene, relativeSceneDistance, true)
	if err != nil {
		return nil, err
	}
	l := sampled.Size()
	if l == 0 {
		return nil, pointcloud.ErrEmptyCloud
	}

	sceneStep := int(math.Round(1 / relativeSceneSampleStep))
	if sceneStep < 1 {
		sceneStep = 1
	}

	numSlots := (l / sceneStep) + 1
	poses := make([]*Pose3D, numSlots)

	group, groupCtx := errgroup.WithContext(ctx)
	for r := 0; r < l; r += sceneStep {
		r := r
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			slot := r / sceneStep
			poses[slot] = m.matchOneReference(sampled, r)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]*Pose3D, 0, numSlots)
	for _, p := range poses {
		if p != nil {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

// matchOneReference casts votes for a single scene reference point and
// reconstructs its best-supported candidate pose, or nil if no scene
// point hashed into any model bucket.
func (m *Model) matchOneReference(scene pointcloud.Cloud, r int) *Pose3D {
	p1, n1, _ := scene.At(r)
	rsg, tsg := computeTransformToX(p1, n1)

	accumulator := make([]int, m.M*m.NumAngles)

	for j := 0; j < scene.Size(); j++ {
		if j == r {
			continue
		}
		p2, n2, _ := scene.At(j)

		f, ok := computePPFFeatures(p1, n1, p2, n2)
		if !ok {
			continue
		}
		key := hashPPF(f, m.AngleStep, m.DistanceStep)

		mptY := tsg.Y + rsg.At(1, 0)*p2.X + rsg.At(1, 1)*p2.Y + rsg.At(1, 2)*p2.Z
		mptZ := tsg.Z + rsg.At(2, 0)*p2.X + rsg.At(2, 1)*p2.Y + rsg.At(2, 2)*p2.Z
		alphaScene := math.Atan2(-mptZ, mptY)
		if math.IsNaN(alphaScene) {
			continue
		}
		if math.Sin(alphaScene)*mptZ < 0 {
			alphaScene = -alphaScene
		}
		alphaScene = -alphaScene

		for node := m.Table.Bucket(key); node != nil; node = node.Next() {
			entry, ok := node.Value.(*hashEntry)
			if !ok || node.Key != key {
				continue
			}
			row := m.Rows[entry.rowIndex]
			alpha := row.alpha - alphaScene
			alphaIndex := int((alpha + 2*math.Pi) / (4 * math.Pi) * float64(m.NumAngles))
			if alphaIndex < 0 {
				alphaIndex = 0
			}
			if alphaIndex >= m.NumAngles {
				alphaIndex = m.NumAngles - 1
			}
			accumulator[entry.modelIndex*m.NumAngles+alphaIndex]++
		}
	}

	refIndMax, alphaIndMax, maxVotes := argmaxAccumulator(accumulator, m.M, m.NumAngles)
	if maxVotes == 0 {
		return nil
	}

	rsgInv := rsg.Transpose()
	tsgInv := rsgInv.Apply(tsg).Mul(-1)
	tsgInvPose := spatialmath.NewPoseFromRT(rsgInv, tsgInv)

	pMax, nMax, _ := m.Sampled.At(refIndMax)
	rmg, tmg := computeTransformToX(pMax, nMax)
	tmgPose := spatialmath.NewPoseFromRT(rmg, tmg)

	alphaStar := float64(alphaIndMax)*(4*math.Pi)/float64(m.NumAngles) - 2*math.Pi
	talphaPose := spatialmath.NewPoseFromRT(spatialmath.UnitXRotation(alphaStar), r3.Vector{})

	candidatePose := tsgInvPose.Compose(talphaPose.Compose(tmgPose))

	pose := NewPose3D(alphaStar, refIndMax, maxVotes)
	pose.UpdateFromMatrix(candidatePose)
	return pose
}

func argmaxAccumulator(accumulator []int, m, numAngles int) (refIndMax, alphaIndMax, maxVotes int) {
	for k := 0; k < m; k++ {
		for j := 0; j < numAngles; j++ {
			v := accumulator[k*numAngles+j]
			if v > maxVotes {
				maxVotes = v
				refIndMax = k
				alphaIndMax = j
			}
		}
	}
	return refIndMax, alphaIndMax, maxVotes
}
