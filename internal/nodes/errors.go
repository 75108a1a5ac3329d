package nodes

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID = errors.New("empty node id")
	ErrCycle   = errors.New("move would make the node its own ancestor")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
