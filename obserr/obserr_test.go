package obserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Formatting(t *testing.T) {
	err := InvalidInput("bad field", nil)
	require.Equal(t, "invalid_input: bad field", err.Error())
	require.Equal(t, CodeInvalidInput, err.Code())
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := IOError("write failed", cause)
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestError_IsMatchesSentinelByCode(t *testing.T) {
	err := NotFound("thread T1 not found", nil)
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrInvalidInput))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	cause := errors.New("root")
	wrapped := Wrap("context", cause)
	require.True(t, errors.Is(wrapped, cause))
}
