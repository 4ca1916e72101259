// Package pointcloud provides the point-cloud utilities used by the ppf
// and icp packages: bounding boxes, downsampling, normal estimation, a
// static KD-tree, and a minimal PLY codec.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrEmptyCloud is returned by operations that require at least one point.
var ErrEmptyCloud = errors.New("point cloud has no points")

// Cloud is a dense set of 3D points with optional per-point normals.
// Normals, when present, must be the same length as Points.
type Cloud struct {
	Points  []r3.Vector
	Normals []r3.Vector
}

// NewCloud returns a Cloud over the given points with no normals.
func NewCloud(points []r3.Vector) Cloud {
	return Cloud{Points: points}
}

// NewCloudWithNormals returns a Cloud over the given points and normals.
// Panics if the slices differ in length, mirroring the teacher's
// convention of panicking on a caller-error shape mismatch rather than
// returning an error for something that is always a programming mistake.
func NewCloudWithNormals(points, normals []r3.Vector) Cloud {
	if len(points) != len(normals) {
		panic("pointcloud: points and normals must be the same length")
	}
	return Cloud{Points: points, Normals: normals}
}

// HasNormals reports whether every point in c has an associated normal.
func (c Cloud) HasNormals() bool {
	return len(c.Normals) == len(c.Points) && len(c.Normals) > 0
}

// Size returns the number of points in c.
func (c Cloud) Size() int {
	return len(c.Points)
}

// At returns the point (and, if present, normal) at index i.
func (c Cloud) At(i int) (point r3.Vector, normal r3.Vector, hasNormal bool) {
	if c.HasNormals() {
		return c.Points[i], c.Normals[i], true
	}
	return c.Points[i], r3.Vector{}, false
}
