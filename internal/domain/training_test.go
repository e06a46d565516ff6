package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrainingStatus_LegalEdges(t *testing.T) {
	cases := []struct {
		from, to TrainingStatus
		ok       bool
	}{
		{TrainingQueued, TrainingPreparing, true},
		{TrainingPreparing, TrainingTraining, true},
		{TrainingTraining, TrainingTraining, true}, // per-epoch progress
		{TrainingTraining, TrainingEvaluating, true},
		{TrainingEvaluating, TrainingCompleted, true},
		{TrainingQueued, TrainingTraining, false},
		{TrainingPreparing, TrainingCompleted, false},
		{TrainingCompleted, TrainingTraining, false},
		{TrainingCancelled, TrainingPreparing, false},
		{TrainingFailed, TrainingQueued, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTrainingStatus_FailAndCancelFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []TrainingStatus{TrainingQueued, TrainingPreparing, TrainingTraining, TrainingEvaluating}
	for _, from := range nonTerminal {
		require.False(t, from.IsTerminal())
		require.True(t, from.CanTransition(TrainingCancelled), "%s -> CANCELLED", from)
		require.True(t, from.CanTransition(TrainingFailed), "%s -> FAILED", from)
	}
	for _, st := range []TrainingStatus{TrainingCompleted, TrainingFailed, TrainingCancelled} {
		require.True(t, st.IsTerminal())
	}
}
