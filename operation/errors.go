package operation

import "errors"

var (
	// ErrInvalidArgument is returned when a nil operation or sink is supplied.
	ErrInvalidArgument = errors.New("operation: invalid argument")

	// ErrCanceled is used to reject completion sinks of operations that were
	// cancelled before they finished.
	ErrCanceled = errors.New("operation: canceled")
)
