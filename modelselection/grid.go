package modelselection

import (
	"math/rand/v2"

	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Candidate is one hyperparameter pair: mtry (predictors sampled per split)
// and min_n (minimum node size).
type Candidate struct {
	Mtry int
	MinN int
}

// Bounds delimits the hyperparameter search space, inclusive on both ends.
type Bounds struct {
	MtryMin, MtryMax int
	MinNMin, MinNMax int
}

// DefaultBounds returns the library-suggested search space for a dataset
// with nPredictors columns: mtry up to the predictor count, min_n in the
// conventional [2, 40] range.
func DefaultBounds(nPredictors int) Bounds {
	maxMtry := nPredictors
	if maxMtry < 1 {
		maxMtry = 1
	}
	return Bounds{
		MtryMin: 1,
		MtryMax: maxMtry,
		MinNMin: 2,
		MinNMax: 40,
	}
}

// RandomGrid draws n distinct candidates roughly covering the bounds: each
// dimension is divided into n strata and one value is sampled per stratum,
// then the pairings are shuffled. This gives space-filling coverage without
// clumping, in the spirit of a latin hypercube. The same seed always
// produces the same grid.
func RandomGrid(n int, b Bounds, seed uint64) ([]Candidate, error) {
	if n < 1 {
		return nil, sferrors.NewValidationError("n", "must be positive", n)
	}
	if b.MtryMax < b.MtryMin || b.MinNMax < b.MinNMin {
		return nil, sferrors.NewValidationError("bounds", "inverted bounds", b)
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	mtrys := stratifiedSample(n, b.MtryMin, b.MtryMax, rng)
	minNs := stratifiedSample(n, b.MinNMin, b.MinNMax, rng)
	rng.Shuffle(n, func(i, j int) {
		minNs[i], minNs[j] = minNs[j], minNs[i]
	})

	seen := make(map[Candidate]bool, n)
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		c := Candidate{Mtry: mtrys[i], MinN: minNs[i]}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// stratifiedSample draws one integer from each of n equal strata of
// [lo, hi].
func stratifiedSample(n, lo, hi int, rng *rand.Rand) []int {
	out := make([]int, n)
	span := float64(hi-lo+1) / float64(n)
	for i := 0; i < n; i++ {
		sLo := lo + int(float64(i)*span)
		sHi := lo + int(float64(i+1)*span) - 1
		if sHi < sLo {
			sHi = sLo
		}
		if sHi > hi {
			sHi = hi
		}
		out[i] = sLo + rng.IntN(sHi-sLo+1)
	}
	return out
}

// RegularGrid lays out levels evenly spaced values per dimension across the
// bounds and returns their cross product. Duplicate candidates produced by
// integer rounding are removed, so the result has at most levels^2 entries.
func RegularGrid(b Bounds, levels int) ([]Candidate, error) {
	if levels < 2 {
		return nil, sferrors.NewValidationError("levels", "need at least two levels", levels)
	}
	if b.MtryMax < b.MtryMin || b.MinNMax < b.MinNMin {
		return nil, sferrors.NewValidationError("bounds", "inverted bounds", b)
	}

	mtrys := spread(b.MtryMin, b.MtryMax, levels)
	minNs := spread(b.MinNMin, b.MinNMax, levels)

	seen := make(map[Candidate]bool, levels*levels)
	out := make([]Candidate, 0, levels*levels)
	for _, mtry := range mtrys {
		for _, minN := range minNs {
			c := Candidate{Mtry: mtry, MinN: minN}
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// spread returns n integers evenly covering [lo, hi], endpoints included.
func spread(lo, hi, n int) []int {
	out := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v := lo + int(float64(i)*float64(hi-lo)/float64(n-1)+0.5)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
