package evaluation

import (
	"math"

	"github.com/jamesainslie/go-cremi/volume"
)

// DistanceTransform computes, for every true element of mask, the Euclidean
// distance to the nearest false element. False elements get 0. sampling
// gives the spacing along each axis; nil means unit spacing.
//
// If mask has no false element, every true element is +Inf.
func DistanceTransform(mask []bool, shape []int, sampling []float64) []float64 {
	dist := make([]float64, len(mask))
	for i, m := range mask {
		if m {
			dist[i] = math.Inf(1)
		}
	}
	if len(mask) == 0 {
		return dist
	}

	strides := volume.Strides(shape)
	maxLen := 0
	for _, s := range shape {
		maxLen = max(maxLen, s)
	}
	line := make([]float64, maxLen)
	out := make([]float64, maxLen)
	v := make([]int, maxLen)
	z := make([]float64, maxLen+1)

	// squared distances, one separable pass per axis
	for d, n := range shape {
		w := 1.0
		if sampling != nil {
			w = sampling[d]
		}
		stride := strides[d]
		for start := range dist {
			if (start/stride)%n != 0 {
				continue
			}
			for q := 0; q < n; q++ {
				line[q] = dist[start+q*stride]
			}
			squaredDistance1D(line[:n], w, out[:n], v, z)
			for q := 0; q < n; q++ {
				dist[start+q*stride] = out[q]
			}
		}
	}

	for i, d := range dist {
		dist[i] = math.Sqrt(d)
	}
	return dist
}

// squaredDistance1D computes min_p f(p) + ((q-p)*w)^2 for every q, using the
// lower envelope of parabolas rooted at the finite samples of f.
func squaredDistance1D(f []float64, w float64, d []float64, v []int, z []float64) {
	k := -1
	for q := range f {
		if math.IsInf(f[q], 1) {
			continue
		}
		xq := float64(q) * w
		var s float64
		for k >= 0 {
			xp := float64(v[k]) * w
			s = ((f[q] + xq*xq) - (f[v[k]] + xp*xp)) / (2 * (xq - xp))
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		if k == 0 {
			z[k] = math.Inf(-1)
		} else {
			z[k] = s
		}
		z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := range d {
		xq := float64(q) * w
		for z[k+1] < xq {
			k++
		}
		dx := xq - float64(v[k])*w
		d[q] = dx*dx + f[v[k]]
	}
}
