package modelselection

import (
	"math/rand/v2"

	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Fold is one cross-validation fold: the analysis portion is used for
// fitting, the assessment portion for metric computation.
type Fold struct {
	Analysis   []int
	Assessment []int
}

// StratifiedKFold produces v folds whose assessment portions preserve the
// stratification column's class proportions.
type StratifiedKFold struct {
	NSplits int
	Seed    uint64
}

// NewStratifiedKFold creates a stratified v-fold plan. Fewer than two splits
// falls back to five.
func NewStratifiedKFold(nSplits int, seed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Seed: seed}
}

// Split generates the fold plan for a table. Every row lands in exactly one
// assessment set; the analysis set is its complement. The same seed always
// produces the same plan.
func (skf *StratifiedKFold) Split(t *dataset.Table, stratify string) ([]Fold, error) {
	nSamples := t.NumRows()
	if nSamples < skf.NSplits {
		return nil, sferrors.NewValidationError("nSplits", "more folds than rows", skf.NSplits)
	}

	groups, err := groupByLevel(t, stratify)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(skf.Seed, skf.Seed))

	folds := make([]Fold, skf.NSplits)

	// Distribute each class across folds in turn.
	for _, g := range groups {
		indices := make([]int, len(g.rows))
		copy(indices, g.rows)
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		cur := 0
		for i := 0; i < skf.NSplits; i++ {
			size := foldSize
			if i < remainder {
				size++
			}
			folds[i].Assessment = append(folds[i].Assessment, indices[cur:cur+size]...)
			cur += size
		}
	}

	// Analysis portions are the complements.
	for i := range folds {
		inAssessment := make(map[int]bool, len(folds[i].Assessment))
		for _, idx := range folds[i].Assessment {
			inAssessment[idx] = true
		}
		for j := 0; j < nSamples; j++ {
			if !inAssessment[j] {
				folds[i].Analysis = append(folds[i].Analysis, j)
			}
		}
	}

	return folds, nil
}
