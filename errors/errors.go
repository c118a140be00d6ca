package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyMessage     = fmt.Errorf("empty or whitespace-only message")
	ErrDuplicateCommand = fmt.Errorf("duplicate command name")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
)
