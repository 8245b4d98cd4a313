package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema construction failures. All of them indicate a
// programming error in a plugin's schema declaration, never bad data.
var (
	// ErrInvalidDataType is returned when a field references an unknown data type.
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrStructuralConflict is returned when a field would hold both
	// sub-properties and multi-fields.
	ErrStructuralConflict = errors.New("field cannot have both properties and multi-fields")

	// ErrReservedOption is returned when options contain a key managed by
	// dedicated methods (type, properties, fields).
	ErrReservedOption = errors.New("reserved option key")
)

func invalidDataType(name string) error {
	return fmt.Errorf("%w: %q", ErrInvalidDataType, name)
}

func reservedOption(key string) error {
	return fmt.Errorf("%w: %q", ErrReservedOption, key)
}
