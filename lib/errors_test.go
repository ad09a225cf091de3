package lib

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkError_WrapsIOError(t *testing.T) {
	walkErr := newPathError(2, "/some/dir", fs.ErrPermission)
	assert.Equal(t, 2, walkErr.Depth())
	assert.Equal(t, "/some/dir", walkErr.Path())
	assert.Contains(t, walkErr.Error(), "/some/dir")
	require.ErrorIs(t, walkErr, fs.ErrPermission)
}

func TestWalkError_Loop(t *testing.T) {
	walkErr := newLoopError(3, "/root", "/root/link")
	assert.Equal(t, "/root", walkErr.LoopAncestor())
	assert.Equal(t, "/root/link", walkErr.Path())
	assert.Nil(t, walkErr.Unwrap())
	assert.Contains(t, walkErr.Error(), "loop")
}

func TestWalkError_Busy(t *testing.T) {
	walkErr := newBusyError()
	assert.True(t, walkErr.IsBusy())
	require.ErrorIs(t, walkErr, ErrPoolBusy)
	require.NotErrorIs(t, newPathError(0, "p", fs.ErrNotExist), ErrPoolBusy)
}

func TestWalkError_IsIgnoresForeignErrors(t *testing.T) {
	assert.False(t, errors.Is(newBusyError(), fs.ErrClosed))
}
