// Package history keeps a linear undo/redo log of reversible commands.
package history

// Command is a reversible mutation. Constructing a command must not mutate
// anything; Apply and Invert may be called alternately any number of times.
type Command interface {
	Apply()
	Invert()
	Label() string
}

// Stack is a single-branch history. Pushing after an undo discards the redo
// tail. A Stack is not safe for concurrent use.
type Stack struct {
	done   []Command
	undone []Command
}

// Push applies cmd and records it.
func (s *Stack) Push(cmd Command) {
	cmd.Apply()
	s.done = append(s.done, cmd)
	clear(s.undone)
	s.undone = s.undone[:0]
}

// Undo inverts the most recent command. It reports false when there is
// nothing to undo.
func (s *Stack) Undo() bool {
	if len(s.done) == 0 {
		return false
	}
	cmd := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	cmd.Invert()
	s.undone = append(s.undone, cmd)
	return true
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() bool {
	if len(s.undone) == 0 {
		return false
	}
	cmd := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	cmd.Apply()
	s.done = append(s.done, cmd)
	return true
}

func (s *Stack) CanUndo() bool { return len(s.done) > 0 }
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// UndoLabel names the command Undo would invert, or "".
func (s *Stack) UndoLabel() string {
	if len(s.done) == 0 {
		return ""
	}
	return s.done[len(s.done)-1].Label()
}

// RedoLabel names the command Redo would apply, or "".
func (s *Stack) RedoLabel() string {
	if len(s.undone) == 0 {
		return ""
	}
	return s.undone[len(s.undone)-1].Label()
}

// Clear drops all history.
func (s *Stack) Clear() {
	s.done = nil
	s.undone = nil
}

// Len returns the number of undoable commands.
func (s *Stack) Len() int { return len(s.done) }
