package record

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("not allowed")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
