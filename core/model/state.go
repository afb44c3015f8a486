// Package model provides shared state management and interfaces for
// estimators and transformers in the sftrees pipeline.
//
// Every fitted component (encoder, recipe step, tree, forest) composes a
// StateManager so that misuse of an unfitted component is caught uniformly.
package model

import (
	"sync"

	"github.com/grvsrm/sftrees/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Components hold it by composition rather than embedding a base estimator.
type StateManager struct {
	fitted bool
	mu     sync.RWMutex

	// Dimensions seen during fitting.
	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset clears the fitted state and recorded dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// SetDimensions records the number of samples and features seen during Fit.
func (s *StateManager) SetDimensions(nSamples, nFeatures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nSamples = nSamples
	s.nFeatures = nFeatures
}

// Dimensions returns the number of samples and features seen during Fit.
func (s *StateManager) Dimensions() (nSamples, nFeatures int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nSamples, s.nFeatures
}

// RequireFitted returns a NotFittedError naming the model and method if the
// model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
