package pointcloud

import (
	"github.com/golang/geo/r3"

	"go.viam.com/ppf3d/internal/eigen3"
)

// EstimateNormals computes a surface normal for every point in c from its
// k nearest neighbours' covariance, using the lowest-eigenvector of the
// local scatter matrix. When viewpoint is non-zero, normals are flipped
// to point toward it, ported from flipNormalViewpoint in the original
// surface-matching module. A k below 3 is raised to 3; an empty cloud
// returns ErrEmptyCloud.
func EstimateNormals(c Cloud, k int, viewpoint r3.Vector) (Cloud, error) {
	if len(c.Points) == 0 {
		return Cloud{}, ErrEmptyCloud
	}
	if k < 3 {
		k = 3
	}

	tree, err := BuildKDTree(c)
	if err != nil {
		return Cloud{}, err
	}

	normals := make([]r3.Vector, len(c.Points))
	for i, p := range c.Points {
		neighborIdx := tree.KNearest(p, k+1)
		normals[i] = estimateOneNormal(c.Points, neighborIdx, p, viewpoint)
	}

	return Cloud{Points: c.Points, Normals: normals}, nil
}

func estimateOneNormal(points []r3.Vector, neighborIdx []int, center, viewpoint r3.Vector) r3.Vector {
	var mean r3.Vector
	for _, idx := range neighborIdx {
		mean = mean.Add(points[idx])
	}
	mean = mean.Mul(1 / float64(len(neighborIdx)))

	var cov eigen3.Symmetric3
	for _, idx := range neighborIdx {
		d := points[idx].Sub(mean)
		cov.XX += d.X * d.X
		cov.XY += d.X * d.Y
		cov.XZ += d.X * d.Z
		cov.YY += d.Y * d.Y
		cov.YZ += d.Y * d.Z
		cov.ZZ += d.Z * d.Z
	}
	n := float64(len(neighborIdx))
	cov.XX /= n
	cov.XY /= n
	cov.XZ /= n
	cov.YY /= n
	cov.YZ /= n
	cov.ZZ /= n

	vec, _ := eigen3.LowestEigenvector(cov)
	normal := r3.Vector{X: vec[0], Y: vec[1], Z: vec[2]}

	if viewpoint != (r3.Vector{}) {
		toView := viewpoint.Sub(center)
		if normal.Dot(toView) < 0 {
			normal = normal.Mul(-1)
		}
	}
	return normal
}
