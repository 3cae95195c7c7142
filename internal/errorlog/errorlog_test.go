package errorlog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk full")

func failingStep() error {
	return WithStack(fmt.Errorf("write: %w", errDisk))
}

func TestWithStack_KeepsOriginStack(t *testing.T) {
	err := failingStep()
	require.ErrorIs(t, err, errDisk)
	require.Equal(t, "write: disk full", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	stack := StackOf(wrapped)
	require.Contains(t, stack, "errorlog.failingStep")

	require.Same(t, err, WithStack(err))
}

func TestStackOf_FallsBackToCaller(t *testing.T) {
	stack := StackOf(errDisk)
	require.Contains(t, stack, "TestStackOf_FallsBackToCaller")
}

func TestWithStack_Nil(t *testing.T) {
	require.NoError(t, WithStack(nil))
}
