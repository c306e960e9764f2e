package thumbnails

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the errors a command recovers from.
type ErrorKind int

const (
	// KindInput is a malformed or unusable command line.
	KindInput ErrorKind = iota + 1
	// KindForbidden is a precondition that makes the run unsafe.
	KindForbidden
	// KindNotFound is a target that does not resolve to a node.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinels matching CommandError kinds with errors.Is.
var (
	ErrInput     = errors.New("invalid command input")
	ErrForbidden = errors.New("command forbidden")
	ErrNotFound  = errors.New("command target not found")
)

// CommandError is an error whose message is shown to the person running the
// command as is.
type CommandError struct {
	Kind    ErrorKind
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel of e's kind.
func (e *CommandError) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == KindInput
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

func inputError(format string, args ...any) error {
	return &CommandError{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(format string, args ...any) error {
	return &CommandError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &CommandError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// IsCommandError reports whether err carries a CommandError, i.e. a message
// meant for the console rather than a failure of the tool itself.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
