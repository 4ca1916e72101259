package ppf

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ppf3d/spatialmath"
)

// Cluster groups candidate poses by proximity and returns one averaged
// Pose3D per cluster, ranked by descending total votes. Ported from
// clusterPoses in the original surface-matching module; see the
// detector's pose-clustering contract for the exact algorithm.
func Cluster(poses []*Pose3D, positionThreshold, rotationThreshold float64, weighted bool) []*Pose3D {
	if len(poses) == 0 {
		return nil
	}

	sorted := make([]*Pose3D, len(poses))
	copy(sorted, poses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NumVotes > sorted[j].NumVotes
	})

	var clusters []*PoseCluster3D
	for id, p := range sorted {
		joined := false
		for _, c := range clusters {
			centroid := c.Poses[0]
			if math.Abs(p.Angle-centroid.Angle) < rotationThreshold &&
				p.Translation.Sub(centroid.Translation).Norm() < positionThreshold {
				c.Add(p)
				joined = true
				break
			}
		}
		if !joined {
			c := NewPoseCluster3D(id)
			c.Add(p)
			clusters = append(clusters, c)
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TotalVotes > clusters[j].TotalVotes
	})

	out := make([]*Pose3D, len(clusters))
	for i, c := range clusters {
		out[i] = averageCluster(c, weighted)
	}
	return out
}

func averageCluster(c *PoseCluster3D, weighted bool) *Pose3D {
	var qSum quat.Number
	var tSum r3.Vector
	var weightSum float64

	for _, p := range c.Poses {
		weight := 1.0
		if weighted {
			weight = float64(p.NumVotes)
		}
		qSum = quat.Add(qSum, quat.Scale(weight, p.Quaternion))
		tSum = tSum.Add(p.Translation.Mul(weight))
		weightSum += weight
	}
	if weightSum == 0 {
		weightSum = 1
	}

	avgQ := spatialmath.NormalizeQuat(quat.Scale(1/weightSum, qSum))
	avgT := tSum.Mul(1 / weightSum)

	out := NewPose3D(0, c.Poses[0].ModelIndex, c.TotalVotes)
	out.UpdateFromQuatT(avgQ, avgT)
	return out
}
