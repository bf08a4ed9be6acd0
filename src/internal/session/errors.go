package session

import "errors"

var (
	ErrBlankIdentifier     = errors.New("identifier is blank")
	ErrBlankInput          = errors.New("input is blank")
	ErrNoFetcher           = errors.New("no fetcher can handle this identifier")
	ErrUnknownFetcher      = errors.New("unknown fetcher")
	ErrUnknownApproach     = errors.New("unknown approach")
	ErrUnknownType         = errors.New("unknown entry type")
	ErrLookupInProgress    = errors.New("a lookup is already in progress")
	ErrApproachUnavailable = errors.New("approach is not available")
)

// ValidationError reports a precondition that failed before any work was
// started. It wraps one of the package's sentinel errors.
type ValidationError struct {
	// Value is the offending input, if any.
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Value
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, value string) error { return &ValidationError{Value: value, Err: err} }
