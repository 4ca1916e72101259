// Package eigen3 computes eigenvalues and eigenvectors of symmetric 3x3
// matrices, the building block behind covariance-based normal estimation.
// The original surface-matching module solves this with a closed-form
// cubic-root formula (eigenLowest33) that loses precision badly near
// repeated eigenvalues; this package instead defers to gonum's general
// symmetric eigendecomposition and falls back to a Jacobi rotation sweep
// if gonum fails to converge.
package eigen3

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Symmetric3 is a symmetric 3x3 matrix stored as its upper triangle.
type Symmetric3 struct {
	XX, XY, XZ float64
	YY, YZ     float64
	ZZ         float64
}

// LowestEigenvector returns the unit eigenvector associated with the
// smallest eigenvalue of m, used to estimate a point's surface normal
// from its local covariance.
func LowestEigenvector(m Symmetric3) (vec [3]float64, eigenvalue float64) {
	sym := mat.NewSymDense(3, []float64{
		m.XX, m.XY, m.XZ,
		m.XY, m.YY, m.YZ,
		m.XZ, m.YZ, m.ZZ,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); ok {
		values := eig.Values(nil)
		var vectors mat.Dense
		eig.VectorsTo(&vectors)

		minIdx := 0
		for i := 1; i < len(values); i++ {
			if values[i] < values[minIdx] {
				minIdx = i
			}
		}
		v := [3]float64{vectors.At(0, minIdx), vectors.At(1, minIdx), vectors.At(2, minIdx)}
		return normalize(v), values[minIdx]
	}

	return jacobiLowestEigenvector(m)
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n < 1e-15 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

// jacobiLowestEigenvector diagonalizes m with the classical cyclic Jacobi
// rotation sweep, used only when gonum's EigenSym fails to converge (rare,
// but possible on near-degenerate or ill-scaled covariance matrices).
func jacobiLowestEigenvector(m Symmetric3) ([3]float64, float64) {
	a := [3][3]float64{
		{m.XX, m.XY, m.XZ},
		{m.XY, m.YY, m.YZ},
		{m.XZ, m.YZ, m.ZZ},
	}
	v := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for sweep := 0; sweep < 64; sweep++ {
		off := math.Abs(a[0][1]) + math.Abs(a[0][2]) + math.Abs(a[1][2])
		if off < 1e-14 {
			break
		}
		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				if math.Abs(a[p][q]) < 1e-300 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				app, aqq, apq := a[p][p], a[q][q], a[p][q]
				a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				a[p][q], a[q][p] = 0, 0

				for r := 0; r < 3; r++ {
					if r != p && r != q {
						arp, arq := a[r][p], a[r][q]
						a[r][p] = c*arp - s*arq
						a[p][r] = a[r][p]
						a[r][q] = s*arp + c*arq
						a[q][r] = a[r][q]
					}
				}
				for r := 0; r < 3; r++ {
					vrp, vrq := v[r][p], v[r][q]
					v[r][p] = c*vrp - s*vrq
					v[r][q] = s*vrp + c*vrq
				}
			}
		}
	}

	minIdx := 0
	for i := 1; i < 3; i++ {
		if a[i][i] < a[minIdx][minIdx] {
			minIdx = i
		}
	}
	return normalize([3]float64{v[0][minIdx], v[1][minIdx], v[2][minIdx]}), a[minIdx][minIdx]
}
