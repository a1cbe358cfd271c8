package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrIDEmpty is returned when a fragment or set id is empty.
	ErrIDEmpty = errors.New("id must not be empty")

	// ErrIDFormat is returned when an id does not match the required pattern.
	ErrIDFormat = errors.New("id must contain only lowercase alphanumeric characters and hyphens, and must not start or end with a hyphen")

	// ErrIDReserved is returned for ids that collide with command keywords.
	ErrIDReserved = errors.New("id is reserved")

	idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?$`)

	// "all" selects every set on the command line.
	reservedIDs = map[string]bool{
		"all": true,
	}
)

// ValidateID checks that id conforms to the required format and is not
// reserved. Uniqueness is checked when the whole catalog is loaded.
func ValidateID(id string) error {
	if id == "" {
		return ErrIDEmpty
	}

	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrIDFormat, id)
	}

	if reservedIDs[id] {
		return fmt.Errorf("%w: %q", ErrIDReserved, id)
	}

	return nil
}
