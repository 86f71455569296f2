package outreach

import "errors"

// Sentinel errors for the outreach service layer.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("lead email already exists")
	ErrInvalidStatus  = errors.New("invalid status value")
)
