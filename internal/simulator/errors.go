package simulator

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("sensor not found")
	ErrEmptyID         = errors.New("sensor id is empty")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrShuttingDown    = errors.New("registry is shutting down")
)

// DuplicateIDError is returned by Registry.Add when a live unit already holds the id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("sensor %q is already registered", e.ID)
}
