package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnrichmentKind(t *testing.T) {
	for _, k := range AllEnrichmentKinds {
		got, err := ParseEnrichmentKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseEnrichmentKind("translate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestEnrichmentStatus_Transitions(t *testing.T) {
	assert.True(t, StatusIdle.CanTransitionTo(StatusRunning))
	assert.False(t, StatusIdle.CanTransitionTo(StatusSucceeded))
	assert.True(t, StatusRunning.CanTransitionTo(StatusSucceeded))
	assert.True(t, StatusRunning.CanTransitionTo(StatusPartiallyFailed))
	assert.True(t, StatusRunning.CanTransitionTo(StatusFailed))
	assert.False(t, StatusRunning.CanTransitionTo(StatusIdle))
	assert.False(t, StatusSucceeded.CanTransitionTo(StatusRunning))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSucceeded))
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name     string
		result   EnrichmentResult
		expected EnrichmentStatus
	}{
		{
			name:     "operation error",
			result:   EnrichmentResult{Error: "no papers selected"},
			expected: StatusFailed,
		},
		{
			name: "all blocks succeeded",
			result: EnrichmentResult{Blocks: []EnrichmentBlock{
				{Title: "a", Body: "ok"},
				{Title: "b", Body: "ok"},
			}},
			expected: StatusSucceeded,
		},
		{
			name: "some blocks failed",
			result: EnrichmentResult{Blocks: []EnrichmentBlock{
				{Title: "a", Body: "ok"},
				{Title: "b", Body: "error", Error: "boom"},
			}},
			expected: StatusPartiallyFailed,
		},
		{
			name: "every block failed",
			result: EnrichmentResult{Blocks: []EnrichmentBlock{
				{Title: "a", Body: "error", Error: "boom"},
			}},
			expected: StatusFailed,
		},
		{
			name:     "no blocks",
			result:   EnrichmentResult{},
			expected: StatusSucceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeStatus(&tt.result))
		})
	}
}

func TestEnrichmentResult_Lifecycle(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		r := NewEnrichmentResult(EnrichmentCitations)
		assert.Equal(t, StatusIdle, r.Status)

		r.Begin()
		assert.Equal(t, StatusRunning, r.Status)
		assert.False(t, r.StartedAt.IsZero())

		r.Blocks = append(r.Blocks, EnrichmentBlock{Title: "a", Body: "ok"})
		r.Complete()
		assert.Equal(t, StatusSucceeded, r.Status)
		assert.False(t, r.CompletedAt.IsZero())
	})

	t.Run("fail from idle", func(t *testing.T) {
		r := NewEnrichmentResult(EnrichmentCompare)
		r.Fail(NewPreconditionError("compare", "at least 2 papers must be selected"))

		assert.Equal(t, StatusFailed, r.Status)
		assert.Equal(t, "compare: at least 2 papers must be selected", r.Error)
	})

	t.Run("terminal status is sticky", func(t *testing.T) {
		r := NewEnrichmentResult(EnrichmentSummarize)
		r.Complete()
		require.Equal(t, StatusSucceeded, r.Status)

		r.Fail(errors.New("late failure"))
		assert.Equal(t, StatusSucceeded, r.Status)
	})
}
