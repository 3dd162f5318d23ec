package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  NewError("something went wrong"),
			want: "something went wrong",
		},
		{
			name: "with component",
			err:  NewError("something went wrong").WithComponent("policy"),
			want: "policy: something went wrong",
		},
		{
			name: "with component and operation",
			err: NewError("something went wrong").
				WithComponent("policy").
				WithOperation("Restarter.Minimize"),
			want: "policy: Restarter.Minimize: something went wrong",
		},
		{
			name: "wrapped",
			err:  WrapError(ErrTargetNotSet, "default objective needs a target"),
			want: "default objective needs a target: target not set",
		},
		{
			name: "wrapped with context",
			err: WrapError(ErrOptimizationFailed, "no restart converged").
				WithComponent("policy").
				WithOperation("Restarter.Minimize"),
			want: "policy: Restarter.Minimize: no restart converged: optimization unsuccessful",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrapErrorNil(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))
	assert.Nil(t, WrapErrorf(nil, "ignored %d", 1))
}

func TestSentinelUnwrapping(t *testing.T) {
	err := WrapErrorf(ErrBatchSize, "got %d rows", 3).WithComponent("policy")

	assert.ErrorIs(t, err, ErrBatchSize)
	assert.NotErrorIs(t, err, ErrTargetNotSet)

	// Wrapping again preserves the sentinel.
	outer := fmt.Errorf("request failed: %w", err)
	assert.ErrorIs(t, outer, ErrBatchSize)
}

func TestIsOptimizationError(t *testing.T) {
	inner := NewError("boom").WithComponent("surrogate")
	wrapped := fmt.Errorf("outer: %w", inner)

	e, ok := IsOptimizationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "surrogate", e.Component)

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = IsOptimizationError(nil)
	assert.False(t, ok)
}
