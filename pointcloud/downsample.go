package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DownsampleQuantized reduces c to at most one point per voxel cell of a
// grid with round(1/relativeStep) cells along each axis of c's bounding
// box, so a cell's side is relativeStep times the box's extent on that
// axis. When
// weighted is true, each cell's output point is the inverse-distance-to-
// centre weighted mean of the points that fell in it; otherwise it is the
// plain mean. Cells are emitted in the order their first point was seen.
// Ported from sample_pc_by_quantization in the original surface-matching
// module.
func DownsampleQuantized(c Cloud, relativeStep float64, weighted bool) (Cloud, error) {
	if len(c.Points) == 0 {
		return Cloud{}, ErrEmptyCloud
	}
	if relativeStep <= 0 {
		return Cloud{}, errors.Errorf("relativeStep must be positive, got %f", relativeStep)
	}

	box, err := ComputeBoundingBox(c)
	if err != nil {
		return Cloud{}, err
	}
	rng := box.Range()
	if rng.X == 0 {
		rng.X = 1
	}
	if rng.Y == 0 {
		rng.Y = 1
	}
	if rng.Z == 0 {
		rng.Z = 1
	}

	numSamplesDim := int(math.Max(1, math.Round(1/relativeStep)))
	hasNormals := c.HasNormals()

	type cell struct {
		sumPos, sumNormal r3.Vector
		sumWeight         float64
		count             int
	}

	cells := make(map[int64]*cell)
	var order []int64

	cellIndex := func(p r3.Vector) (int64, r3.Vector) {
		fx := float64(numSamplesDim) * (p.X - box.Min.X) / rng.X
		fy := float64(numSamplesDim) * (p.Y - box.Min.Y) / rng.Y
		fz := float64(numSamplesDim) * (p.Z - box.Min.Z) / rng.Z
		ix := clampCell(int(fx), numSamplesDim)
		iy := clampCell(int(fy), numSamplesDim)
		iz := clampCell(int(fz), numSamplesDim)
		n := int64(numSamplesDim)
		key := int64(ix)*n*n + int64(iy)*n + int64(iz)
		centre := r3.Vector{
			X: box.Min.X + (float64(ix)+0.5)*rng.X/float64(numSamplesDim),
			Y: box.Min.Y + (float64(iy)+0.5)*rng.Y/float64(numSamplesDim),
			Z: box.Min.Z + (float64(iz)+0.5)*rng.Z/float64(numSamplesDim),
		}
		return key, centre
	}

	const epsilon = 1e-12

	for i, p := range c.Points {
		key, centre := cellIndex(p)
		cl, ok := cells[key]
		if !ok {
			cl = &cell{}
			cells[key] = cl
			order = append(order, key)
		}

		weight := 1.0
		if weighted {
			weight = 1.0 / (centre.Sub(p).Norm() + epsilon)
		}

		cl.sumPos = cl.sumPos.Add(p.Mul(weight))
		if hasNormals {
			cl.sumNormal = cl.sumNormal.Add(c.Normals[i].Mul(weight))
		}
		cl.sumWeight += weight
		cl.count++
	}

	out := Cloud{Points: make([]r3.Vector, len(order))}
	if hasNormals {
		out.Normals = make([]r3.Vector, len(order))
	}
	for i, key := range order {
		cl := cells[key]
		out.Points[i] = cl.sumPos.Mul(1 / cl.sumWeight)
		if hasNormals {
			n := cl.sumNormal.Mul(1 / cl.sumWeight)
			if norm := n.Norm(); norm > epsilon {
				n = n.Mul(1 / norm)
			}
			out.Normals[i] = n
		}
	}
	return out, nil
}

func clampCell(v, numSamplesDim int) int {
	if v < 0 {
		return 0
	}
	if v >= numSamplesDim {
		return numSamplesDim - 1
	}
	return v
}

// DownsampleUniform returns every stride-th point of c (stride >= 1),
// supplementing the quantized downsampler with a mode that has a simple
// monotone knob on output point count, used by the icp package to build
// its resolution pyramid. Ported from sample_pc_uniform in the original
// surface-matching module.
func DownsampleUniform(c Cloud, stride int) Cloud {
	if stride < 1 {
		stride = 1
	}
	hasNormals := c.HasNormals()
	var out Cloud
	for i := 0; i < len(c.Points); i += stride {
		out.Points = append(out.Points, c.Points[i])
		if hasNormals {
			out.Normals = append(out.Normals, c.Normals[i])
		}
	}
	return out
}
