package healthprofile

import "errors"

var (
	ErrNotFound = errors.New("health profile not found")
	// ErrPublicIDTaken means the public id is held by a live profile or was retired.
	ErrPublicIDTaken = errors.New("public emergency id unavailable")
	ErrExists        = errors.New("health profile already exists")
)

// ValidationError carries a message that is safe to show the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
