// Package preprocessing implements the fit-once, apply-many transformation
// recipe used by the trees pipeline: rare-level pooling, one-hot encoding,
// date feature extraction, and training-only class downsampling.
//
// A Recipe is an ordered sequence of Steps. Each step is tagged as either
// always-applied or training-only. Fitting learns every step's state from
// the training data alone; Bake applies the always-applied steps to any
// dataset (test set, cross-validation assessment fold), while BakeTraining
// additionally applies training-only steps such as downsampling. Applying a
// training-only step to assessment data would bias any metric computed on
// it, so the two paths are kept explicit.
package preprocessing

import (
	"github.com/grvsrm/sftrees/core/model"
	"github.com/grvsrm/sftrees/dataset"
	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

// Step is a single transformation in a Recipe.
type Step interface {
	// Name identifies the step in errors and logs.
	Name() string

	// TrainingOnly reports whether the step applies only to training data.
	TrainingOnly() bool

	// Fit learns the step's state from the (already partially transformed)
	// training table.
	Fit(t *dataset.Table) error

	// Apply transforms a table using the fitted state.
	Apply(t *dataset.Table) (*dataset.Table, error)
}

// Recipe is an ordered, two-phase (fit then apply) transformation pipeline.
type Recipe struct {
	state *model.StateManager
	steps []Step
}

// NewRecipe creates a recipe from steps, applied in order.
func NewRecipe(steps ...Step) *Recipe {
	return &Recipe{
		state: model.NewStateManager(),
		steps: steps,
	}
}

// Steps returns the recipe's steps in order.
func (r *Recipe) Steps() []Step {
	return r.steps
}

// Fit learns every step's state from the training table. Each step is fitted
// on the output of the previous steps (training-only steps included, so a
// step placed after downsampling would see balanced classes).
func (r *Recipe) Fit(train *dataset.Table) error {
	if train.NumRows() == 0 {
		return sferrors.Wrap(sferrors.ErrEmptyData, "recipe.Fit")
	}

	cur := train
	for _, step := range r.steps {
		if err := step.Fit(cur); err != nil {
			return sferrors.Wrapf(err, "fitting step %q", step.Name())
		}
		next, err := step.Apply(cur)
		if err != nil {
			return sferrors.Wrapf(err, "applying step %q during fit", step.Name())
		}
		cur = next
	}

	r.state.SetDimensions(train.NumRows(), train.NumCols())
	r.state.SetFitted()
	return nil
}

// Bake applies the fitted always-applied steps to a table. Use for test sets
// and cross-validation assessment folds.
func (r *Recipe) Bake(t *dataset.Table) (*dataset.Table, error) {
	return r.apply(t, false, "Bake")
}

// BakeTraining applies all fitted steps, including training-only ones such
// as downsampling. Use for the data the model will be fitted on.
func (r *Recipe) BakeTraining(t *dataset.Table) (*dataset.Table, error) {
	return r.apply(t, true, "BakeTraining")
}

func (r *Recipe) apply(t *dataset.Table, training bool, method string) (*dataset.Table, error) {
	if err := r.state.RequireFitted("Recipe", method); err != nil {
		return nil, err
	}

	cur := t
	for _, step := range r.steps {
		if step.TrainingOnly() && !training {
			continue
		}
		next, err := step.Apply(cur)
		if err != nil {
			return nil, sferrors.Wrapf(err, "applying step %q", step.Name())
		}
		cur = next
	}
	return cur, nil
}
