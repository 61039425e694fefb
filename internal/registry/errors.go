package registry

import (
	"errors"
	"fmt"

	"go-expanded-storage/internal/model"
)

var (
	// ErrDuplicateName is returned when a committed definition already uses the name.
	ErrDuplicateName = errors.New("registry: duplicate storage name")

	// ErrInvalidDefinition is returned for nil definitions or empty names.
	ErrInvalidDefinition = errors.New("registry: invalid storage definition")
)

// DuplicateNameError carries both owners of a name collision.
type DuplicateNameError struct {
	Name          string
	Owner         model.SourceID
	ExistingOwner model.SourceID
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("registry: duplicate storage %q from %s (already declared by %s)", e.Name, e.Owner, e.ExistingOwner)
}

// Is matches ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}
