package forecast

import "fmt"

// MissingDataError reports insufficient history to compute trends or run
// transport. It is propagated to the caller, never recovered internally.
type MissingDataError struct {
	Reason string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data: %s", e.Reason)
}
