package timer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartImplicitlyFinishesPriorPhase(t *testing.T) {
	bt := New()
	bt.Start("phase-1")
	bt.Start("phase-2")
	require.NoError(t, bt.Finish())

	completed := bt.Completed()
	require.Len(t, completed, 2)
	require.Equal(t, "phase-1", completed[0].Name())
	require.Equal(t, "phase-2", completed[1].Name())
}

func TestFinishWithoutStartErrors(t *testing.T) {
	bt := New()
	require.Error(t, bt.Finish())
}

func TestFinishWithLabelRecordsLabel(t *testing.T) {
	bt := New()
	bt.Start("phase-1")
	require.NoError(t, bt.FinishWithLabel("some reason"))

	label, ok := bt.Completed()[0].EndLabel()
	require.True(t, ok)
	require.Equal(t, "some reason", label)
}
