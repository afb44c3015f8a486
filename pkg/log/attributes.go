// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys consistently makes tuning runs greppable: every fold and
// candidate evaluation logs the same fields.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model or transformer type.
	// Examples: "RandomForestClassifier", "Recipe"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "tune", "evaluate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "preprocessing", "modelselection"
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of predictor columns.
	FeaturesKey = "data.features"

	// DroppedRowsKey is the number of rows removed by cleaning.
	DroppedRowsKey = "data.dropped_rows"
)

// Tuning context.
const (
	// FoldKey is the cross-validation fold index (zero-based).
	FoldKey = "cv.fold"

	// CandidateKey is the hyperparameter candidate index within the grid.
	CandidateKey = "cv.candidate"

	// MtryKey is the number of predictors sampled per split.
	MtryKey = "params.mtry"

	// MinNKey is the minimum node size.
	MinNKey = "params.min_n"
)

// Metrics.
const (
	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// ROCAUCKey records area under the ROC curve in [0, 1].
	ROCAUCKey = "metrics.roc_auc"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
