package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SolveAssignment finds a minimum-cost perfect matching on a square cost
// matrix and returns, for each row, the assigned column.
//
// It runs the Hungarian method with row and column potentials in O(n³).
// The result depends only on the matrix, so equal-cost alternatives are
// always resolved the same way.
func SolveAssignment(costs mat.Matrix) ([]int, error) {
	r, c := costs.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d is not square", ErrInvalidCostMatrix, r, c)
	}
	n := r
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := costs.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite cost %v at (%d, %d)", ErrInvalidCostMatrix, v, i, j)
			}
		}
	}

	// 1-based; column 0 and p[0] are the augmenting path root
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := costs.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n)
	for j := 1; j <= n; j++ {
		rowToCol[p[j]-1] = j - 1
	}
	return rowToCol, nil
}
