package console

import (
	"errors"
	"fmt"
)

var (
	// ErrInputTruncated indicates a byte was discarded because the line
	// buffer is full. It is not fatal: the terminator is still accepted.
	ErrInputTruncated = errors.New("input truncated")
	// ErrUnknownCommand indicates a completed line matched no command.
	ErrUnknownCommand = errors.New("unknown command")
)

// UnknownCommandError carries the line that matched no command.
type UnknownCommandError struct {
	Line string
}

// Error implements error.
func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %q", e.Line)
}

// Is matches ErrUnknownCommand.
func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}
