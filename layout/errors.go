package layout

import "errors"

// Kind is a stable category for layout failures.
type Kind string

const (
	KindDataTooShort   Kind = "DataTooShort"
	KindLengthMismatch Kind = "LengthMismatch"
	KindUnknownType    Kind = "UnknownType"
	KindFieldCount     Kind = "FieldCount"
	KindValue          Kind = "Value"
)

var (
	ErrDataTooShort   = errors.New("layout: data too short")
	ErrLengthMismatch = errors.New("layout: data length mismatch")
	ErrUnknownType    = errors.New("layout: unknown type")
	ErrFieldCount     = errors.New("layout: field name count does not match layout")
	ErrValue          = errors.New("layout: value does not match tag")
)

// Error reports where in the layout a check failed.
//
// Field is the index of the offending tag (-1 when the failure is not tied to
// one tag). Offset is the cursor position at the time of failure.
type Error struct {
	Kind    Kind
	Field   int
	Offset  uint64
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
