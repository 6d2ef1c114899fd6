package parser

import (
	"fmt"
)

//InputError reports a log file which cannot be parsed at all: an
//unreadable file or a header missing required columns. Row level
//problems are never fatal and are reported via the skip counter instead.
type InputError struct {
	Path   string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("malformed input %s: %s", e.Path, e.Reason)
}

//IsInputError checks whether err is an InputError
func IsInputError(err error) bool {
	_, ok := err.(*InputError)
	return ok
}
