// Package metrics implements evaluation metrics for binary classification.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Accuracy calculates the fraction of correct predictions.
//
// Parameters:
//   - yTrue: Ground truth labels
//   - yPred: Predicted labels
//
// Returns:
//   - The accuracy in [0, 1]
//   - An error if inputs are invalid
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, sferrors.NewValueError(
			"Accuracy",
			"input vectors cannot be nil",
		)
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, sferrors.NewValueError(
			"Accuracy",
			"input vectors cannot be empty",
		)
	}

	if n != yPred.Len() {
		return 0, sferrors.NewDimensionError(
			"Accuracy",
			n,
			yPred.Len(),
			0,
		)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// ROCAUC calculates the Area Under the ROC Curve for binary classification.
//
// The AUC represents the probability that a classifier will rank a randomly
// chosen positive instance higher than a randomly chosen negative instance.
// AUC values range from 0 to 1, where:
//   - 0.5 indicates random guessing
//   - 1.0 indicates perfect classification
//   - 0.0 indicates perfectly wrong classification
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yScore: Predicted probabilities or decision scores for the positive class
//
// Returns:
//   - The AUC score
//   - An error if inputs are invalid
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := metrics.ROCAUC(yTrue, yScore)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("AUC: %f\n", auc) // Output: AUC: 0.75
func ROCAUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, sferrors.NewValueError(
			"ROCAUC",
			"input vectors cannot be nil",
		)
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, sferrors.NewValueError(
			"ROCAUC",
			"input vectors cannot be empty",
		)
	}

	if n != yScore.Len() {
		return 0, sferrors.NewDimensionError(
			"ROCAUC",
			n,
			yScore.Len(),
			0,
		)
	}

	for i := 0; i < n; i++ {
		val := yTrue.AtVec(i)
		if val != 0.0 && val != 1.0 {
			return 0, sferrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", val, i),
				val,
			)
		}
	}

	// Pair scores with labels and sort by score descending.
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{
			score: yScore.AtVec(i),
			label: yTrue.AtVec(i),
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	totalPos := 0.0
	totalNeg := 0.0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1.0 {
			totalPos++
		} else {
			totalNeg++
		}
	}

	// If all samples belong to one class, AUC is undefined.
	// Return 0.5 as a reasonable default (random classifier).
	if totalPos == 0 || totalNeg == 0 {
		return 0.5, nil
	}

	// Sweep thresholds, collecting ROC points.
	var tprs []float64
	var fprs []float64

	tprs = append(tprs, 0)
	fprs = append(fprs, 0)

	tp := 0.0
	fp := 0.0
	prevScore := pairs[0].score + 1

	for _, p := range pairs {
		if p.score != prevScore {
			tprs = append(tprs, tp/totalPos)
			fprs = append(fprs, fp/totalNeg)
			prevScore = p.score
		}

		if p.label == 1.0 {
			tp++
		} else {
			fp++
		}
	}

	tprs = append(tprs, 1)
	fprs = append(fprs, 1)

	// Trapezoidal rule over the ROC curve.
	auc := 0.0
	for i := 1; i < len(fprs); i++ {
		width := fprs[i] - fprs[i-1]
		height := (tprs[i] + tprs[i-1]) / 2
		auc += width * height
	}

	return auc, nil
}

// ConfusionCounts tallies binary classification outcomes at the 0/1 label
// level: true positives, false positives, true negatives, false negatives.
type ConfusionCounts struct {
	TP, FP, TN, FN int
}

// Confusion computes confusion counts for binary labels.
func Confusion(yTrue, yPred *mat.VecDense) (ConfusionCounts, error) {
	var c ConfusionCounts
	if yTrue == nil || yPred == nil {
		return c, sferrors.NewValueError("Confusion", "input vectors cannot be nil")
	}
	if yTrue.Len() != yPred.Len() {
		return c, sferrors.NewDimensionError("Confusion", yTrue.Len(), yPred.Len(), 0)
	}

	for i := 0; i < yTrue.Len(); i++ {
		truth := yTrue.AtVec(i) == 1.0
		pred := yPred.AtVec(i) == 1.0
		switch {
		case truth && pred:
			c.TP++
		case !truth && pred:
			c.FP++
		case truth && !pred:
			c.FN++
		default:
			c.TN++
		}
	}
	return c, nil
}
