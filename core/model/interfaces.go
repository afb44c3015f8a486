package model

import "gonum.org/v1/gonum/mat"

// Classifier is the interface satisfied by fitted classification models.
type Classifier interface {
	// Fit trains the classifier on features X and labels y (column vector).
	Fit(X, y mat.Matrix) error

	// Predict returns hard class labels as a column vector.
	Predict(X mat.Matrix) (mat.Matrix, error)

	// PredictProba returns per-class probability estimates, one column per
	// class in sorted label order.
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}
