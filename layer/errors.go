package layer

import (
	"errors"
	"fmt"
)

// InvalidAddressError reports that a specific byte lies outside a
// layer's readable or writable region. It is returned by Read, Write,
// and Translate, and is the error that pad=true/ignore_errors=true
// suppress into zero-fill or gap tolerance.
type InvalidAddressError struct {
	Layer       string
	Offset      int64
	Description string
}

func (e *InvalidAddressError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("invalid address 0x%x in layer %s", e.Offset, e.Layer)
	}
	return fmt.Sprintf("invalid address 0x%x in layer %s: %s", e.Offset, e.Layer, e.Description)
}

// NewInvalidAddress builds an InvalidAddressError.
func NewInvalidAddress(layerName string, offset int64, description string) error {
	return &InvalidAddressError{Layer: layerName, Offset: offset, Description: description}
}

// IsInvalidAddress reports whether err is (or wraps) an InvalidAddressError.
func IsInvalidAddress(err error) bool {
	var ia *InvalidAddressError
	return errors.As(err, &ia)
}

// Error reports a structural violation of the layer/DAG contract:
// a duplicate layer name, an unmet dependency, an outstanding
// dependent at deletion time, or an overlapping mapping tuple.
type Error struct {
	Description string
}

func (e *Error) Error() string {
	return e.Description
}

// NewError builds a layer.Error with a formatted description.
func NewError(format string, args ...interface{}) error {
	return &Error{Description: fmt.Sprintf(format, args...)}
}
