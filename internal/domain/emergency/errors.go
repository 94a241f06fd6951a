package emergency

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown public ids and unknown tokens alike.
	ErrNotFound = errors.New("not found")
	ErrGone     = errors.New("gone")
	// ErrBadRequest is the parent of every caller input error.
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("not allowed")
)

var (
	ErrTokenExpired = fmt.Errorf("share token expired: %w", ErrGone)
	ErrTokenUsed    = fmt.Errorf("share token already used: %w", ErrGone)

	ErrInvalidScope   = fmt.Errorf("exactly one of record_ids or user_id is required: %w", ErrBadRequest)
	ErrNothingToShare = fmt.Errorf("share token has nothing to share: %w", ErrBadRequest)
	ErrInvalidExpiry  = fmt.Errorf("expires_at must be in the future: %w", ErrBadRequest)
	ErrUnknownRecords = fmt.Errorf("one or more records do not exist: %w", ErrBadRequest)
	ErrUnknownUser    = fmt.Errorf("user does not exist: %w", ErrBadRequest)
	ErrInvalidMethod  = fmt.Errorf("unknown access method: %w", ErrBadRequest)

	// ErrTokenTaken is returned by ShareTokenRepository.Create when the
	// random token collides with an existing one.
	ErrTokenTaken = errors.New("share token already exists")
)
