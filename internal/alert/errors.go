package alert

import (
	"fmt"
	"github.com/pkg/errors"
)

// ErrCheckInProgress is returned when a check cycle is requested while
// another one is still running.
var ErrCheckInProgress = errors.New("price check already in progress")

// ValidationError reports malformed registration input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
