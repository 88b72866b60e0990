package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestValidator_CollectsOneErrorPerField(t *testing.T) {
	v := NewValidator().
		Field("Glucose", "95", Required, Numeric, NonNegative).
		Field("Insulin", "", Required, Numeric).
		Field("Age", "forty", Required, Numeric).
		Field("BMI", "-3", Required, Numeric, NonNegative)

	require.True(t, v.HasErrors())
	errs := v.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, "Insulin", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)
	assert.Equal(t, "must be a number", errs[1].Message)
	assert.Equal(t, "must not be negative", errs[2].Message)

	err := v.Error()
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, codes.InvalidArgument, GRPCCode(err))
	assert.Contains(t, v.ErrorMessage(), "Age")
}

func TestValidator_NoErrors(t *testing.T) {
	v := NewValidator().Field("Glucose", "1e2", Numeric)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}

func TestNumeric_RejectsNonFinite(t *testing.T) {
	assert.NotNil(t, Numeric("x", "NaN"))
	assert.NotNil(t, Numeric("x", "Inf"))
	assert.NotNil(t, Numeric("x", 12))
}
