package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// BoundingBox is an axis-aligned bounding box.
type BoundingBox struct {
	Min, Max r3.Vector
}

// Range returns the per-axis extent of the box.
func (b BoundingBox) Range() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Diameter returns the length of the box's main diagonal, used by the ppf
// package to size its distance-quantization step.
func (b BoundingBox) Diameter() float64 {
	return b.Range().Norm()
}

// ComputeBoundingBox returns the axis-aligned bounding box of c. Returns
// ErrEmptyCloud if c has no points, ported from compute_bbox_std's guard
// in the original surface-matching module.
func ComputeBoundingBox(c Cloud) (BoundingBox, error) {
	if len(c.Points) == 0 {
		return BoundingBox{}, ErrEmptyCloud
	}
	min := c.Points[0]
	max := c.Points[0]
	for _, p := range c.Points[1:] {
		min = r3.Vector{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = r3.Vector{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return BoundingBox{Min: min, Max: max}, nil
}
