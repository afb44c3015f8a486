package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/grvsrm/sftrees/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Recipe", "Bake")
	require.Error(t, err)
	var nf *sferrors.NotFittedError
	assert.True(t, sferrors.As(err, &nf))

	s.SetDimensions(100, 12)
	s.SetFitted()
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFitted("Recipe", "Bake"))

	samples, features := s.Dimensions()
	assert.Equal(t, 100, samples)
	assert.Equal(t, 12, features)

	s.Reset()
	assert.False(t, s.IsFitted())
	samples, features = s.Dimensions()
	assert.Equal(t, 0, samples)
	assert.Equal(t, 0, features)
}
