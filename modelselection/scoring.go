package modelselection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/metrics"
)

// Scores holds held-out evaluation metrics for a fitted classifier.
type Scores struct {
	Accuracy float64
	ROCAUC   float64
}

// Evaluate computes accuracy and ROC-AUC for a fitted classifier on
// features X and binary labels y.
func Evaluate(clf model.Classifier, X mat.Matrix, y *mat.VecDense) (Scores, error) {
	acc, auc, err := scoreClassifier(clf, X, y, positiveColumn(clf))
	if err != nil {
		return Scores{}, err
	}
	return Scores{Accuracy: acc, ROCAUC: auc}, nil
}

func scoreClassifier(clf model.Classifier, X mat.Matrix, y *mat.VecDense, posCol int) (acc, auc float64, err error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return 0, 0, err
	}

	n := y.Len()
	predVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		predVec.SetVec(i, pred.At(i, 0))
	}

	acc, err = metrics.Accuracy(y, predVec)
	if err != nil {
		return 0, 0, err
	}

	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, 0, err
	}

	_, cols := proba.Dims()
	if posCol >= cols {
		posCol = cols - 1
	}
	scoreVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		scoreVec.SetVec(i, proba.At(i, posCol))
	}

	auc, err = metrics.ROCAUC(y, scoreVec)
	if err != nil {
		return 0, 0, err
	}

	return acc, auc, nil
}
