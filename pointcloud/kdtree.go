package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
)

// KDTree is a static, median-split k-d tree over a fixed set of points,
// built once and queried many times. Grounded on the recursive largest-
// extent-axis split used by standalone Go k-d tree implementations in the
// wider example corpus, adapted here to r3.Vector and to the build/query
// contract the ppf and icp packages need (build once, query repeatedly).
type KDTree struct {
	points []r3.Vector
	root   *kdNode
}

type kdNode struct {
	index       int
	left, right *kdNode
	axis        int
}

const kdLeafThreshold = 1

// BuildKDTree constructs a static k-d tree over c's points. Returns
// ErrEmptyCloud if c has no points.
func BuildKDTree(c Cloud) (*KDTree, error) {
	if len(c.Points) == 0 {
		return nil, ErrEmptyCloud
	}
	t := &KDTree{points: c.Points}
	indices := make([]int, len(c.Points))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(indices)
	return t, nil
}

func (t *KDTree) build(indices []int) *kdNode {
	if len(indices) == 0 {
		return nil
	}
	if len(indices) <= kdLeafThreshold {
		return &kdNode{index: indices[0]}
	}

	axis := t.widestAxis(indices)
	sort.Slice(indices, func(i, j int) bool {
		return component(t.points[indices[i]], axis) < component(t.points[indices[j]], axis)
	})
	mid := len(indices) / 2

	node := &kdNode{index: indices[mid], axis: axis}
	node.left = t.build(indices[:mid])
	node.right = t.build(indices[mid+1:])
	return node
}

func (t *KDTree) widestAxis(indices []int) int {
	min, max := t.points[indices[0]], t.points[indices[0]]
	for _, i := range indices[1:] {
		p := t.points[i]
		min = r3.Vector{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = r3.Vector{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}
	rng := max.Sub(min)
	axis := 0
	widest := rng.X
	if rng.Y > widest {
		axis, widest = 1, rng.Y
	}
	if rng.Z > widest {
		axis = 2
	}
	return axis
}

func component(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// NearestNeighbor returns the index into the tree's points closest to q,
// and the squared distance to it.
func (t *KDTree) NearestNeighbor(q r3.Vector) (index int, sqDist float64) {
	best := -1
	bestDist := math64Max
	t.nearest(t.root, q, &best, &bestDist)
	return best, bestDist
}

const math64Max = 1.7976931348623157e+308

func (t *KDTree) nearest(n *kdNode, q r3.Vector, best *int, bestDist *float64) {
	if n == nil {
		return
	}
	d := t.points[n.index].Sub(q).Norm2()
	if *best == -1 || d < *bestDist {
		*best = n.index
		*bestDist = d
	}

	if n.left == nil && n.right == nil {
		return
	}

	diff := component(q, n.axis) - component(t.points[n.index], n.axis)
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}
	t.nearest(near, q, best, bestDist)
	if diff*diff < *bestDist {
		t.nearest(far, q, best, bestDist)
	}
}

// KNearest returns up to k indices into the tree's points nearest to q, in
// increasing order of distance.
func (t *KDTree) KNearest(q r3.Vector, k int) []int {
	type cand struct {
		index int
		dist  float64
	}
	var cands []cand
	var visit func(n *kdNode)
	visit = func(n *kdNode) {
		if n == nil {
			return
		}
		d := t.points[n.index].Sub(q).Norm2()
		cands = append(cands, cand{n.index, d})
		visit(n.left)
		visit(n.right)
	}
	visit(t.root)

	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = cands[i].index
	}
	return out
}

// Points returns the points the tree was built over.
func (t *KDTree) Points() []r3.Vector {
	return t.points
}
