// Package sentinel holds the errors infrastructure adapters return.
// Stores and clients wrap these with fmt.Errorf("...: %w"); services translate
// them into domain errors exactly once.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
