package commands

import "errors"

// ErrMissingCommand is wrapped by the UsageError returned when exec is
// invoked without a command.
var ErrMissingCommand = errors.New("missing command to execute")

// UsageError reports invalid command-line input. It aborts the whole batch
// before any package is touched.
type UsageError struct {
	Message string
	Err     error
}

func (e *UsageError) Error() string {
	return e.Message
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err is, or wraps, a *UsageError.
func IsUsageError(err error) bool {
	var usageErr *UsageError
	return errors.As(err, &usageErr)
}
