package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("id", "", Required).
		Field("name", "a very long name", MaxLength(5)).
		Field("trigger", "hourly", OneOf("manual", "scheduled")).
		Field("format", "{date}", Contains("{ext}"))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 4)

	err := v.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "trigger")
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator().
		Field("id", "job-1", Required).
		Field("folders", []string{"*"}, Required).
		Field("trigger", "manual", OneOf("manual", "scheduled"))

	assert.False(t, v.HasErrors())
	assert.False(t, NewValidator().Field("format", "{date}{Ext}", Contains("{ext}")).HasErrors())
	assert.NoError(t, v.Err())
	assert.Empty(t, v.ErrorMessage())
}
