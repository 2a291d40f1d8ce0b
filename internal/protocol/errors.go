package protocol

import (
	"errors"
	"fmt"
)

// WireError is a serialisable snapshot of an error chain, sent to clients
// as part of OperationFailed/Error so a UI can render display text and the
// full source chain without the client needing the original Go error type.
// Grounds raphy_protocol::SerdeError.
type WireError struct {
	Message string      `cbor:"message"`
	Detail  string      `cbor:"detail"`
	Cause   *WireError  `cbor:"cause,omitempty"`
}

// NewWireError flattens err (and its %w chain, via errors.Unwrap) into a
// WireError.
func NewWireError(err error) *WireError {
	if err == nil {
		return nil
	}

	we := &WireError{
		Message: err.Error(),
		Detail:  fmt.Sprintf("%+v", err),
	}
	if cause := errors.Unwrap(err); cause != nil {
		we.Cause = NewWireError(cause)
	}
	return we
}

func (e *WireError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
