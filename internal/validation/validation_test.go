package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Sender string `form:"envelope[from]" validate:"required"`
	Note   string `validate:"max=3"`
	Free   string
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Sender: "a@b", Note: "ok"}))

	err := Struct(sample{Note: "too long"})
	var failures Errors
	require.True(t, errors.As(err, &failures))
	require.Equal(t, []string{"envelope[from]", "Note"}, failures.Fields())
	require.Equal(t, "envelope[from] failed on required; Note failed on max=3", err.Error())
}

func TestErrors_Empty(t *testing.T) {
	require.Equal(t, "validation failed", Errors{}.Error())
}
