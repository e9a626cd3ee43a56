package database

import "errors"

// Error taxonomy shared by the HTTP layer. Ownership failures and genuinely
// missing records both surface as ErrNotFound so callers cannot probe for the
// existence of records they do not own.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)
