package pipeline

import "errors"

// ErrUnrecognized marks input a handler claimed but could not interpret. It is
// rendered as the generic "could not be parsed" reply.
var ErrUnrecognized = errors.New("unrecognized command")

// UserError carries a message meant to be shown to the user verbatim.
type UserError struct {
	Title   string
	Message string
}

func (e *UserError) Error() string { return e.Message }
