package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by widgets and stores. Adapters map them to
// transport status codes with errors.Is.
var (
	ErrUnknownState     = errors.New("unknown lifecycle state")
	ErrUnknownTechnique = errors.New("unknown synchronization technique")
	ErrInvalidSetting   = errors.New("setting out of range")
	ErrInvalidCatalog   = errors.New("invalid catalog")
	ErrMissing          = errors.New("not found")
)

// ErrNotFound reports a missing addressable resource such as a session.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrMissing) match any ErrNotFound.
func (e ErrNotFound) Is(target error) bool {
	return target == ErrMissing
}
