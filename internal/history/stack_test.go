package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addCmd struct {
	target *int
	delta  int
}

func (c addCmd) Apply()        { *c.target += c.delta }
func (c addCmd) Invert()       { *c.target -= c.delta }
func (c addCmd) Label() string { return "add" }

func TestUndoRedo(t *testing.T) {
	var v int
	var s Stack

	s.Push(addCmd{&v, 2})
	s.Push(addCmd{&v, 3})
	require.Equal(t, 5, v)
	assert.Equal(t, 2, s.Len())

	require.True(t, s.Undo())
	assert.Equal(t, 2, v)
	require.True(t, s.Undo())
	assert.Equal(t, 0, v)
	assert.False(t, s.Undo())
	assert.False(t, s.CanUndo())

	require.True(t, s.Redo())
	assert.Equal(t, 2, v)
	assert.True(t, s.CanRedo())
	assert.Equal(t, "add", s.RedoLabel())
}

func TestPushDiscardsRedoTail(t *testing.T) {
	var v int
	var s Stack

	s.Push(addCmd{&v, 1})
	s.Push(addCmd{&v, 10})
	s.Undo()
	require.True(t, s.CanRedo())

	s.Push(addCmd{&v, 100})
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
	assert.Equal(t, 101, v)
}

func TestClear(t *testing.T) {
	var v int
	var s Stack
	s.Push(addCmd{&v, 1})
	s.Push(addCmd{&v, 1})
	s.Undo()

	s.Clear()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Empty(t, s.UndoLabel())
	assert.Equal(t, 1, v, "clear must not touch state")
}
