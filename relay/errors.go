package relay

import "errors"

var (
	// ErrNotFound is returned when a pseudonym, real id or display name
	// does not resolve to a registered identity.
	ErrNotFound = errors.New("identity not found")

	// ErrNameTaken is returned when a display name is already owned by
	// another identity.
	ErrNameTaken = errors.New("display name already taken")

	// ErrAmbiguousName is returned when a display name matches more than
	// one identity. The caller must not guess; it should ask for a
	// pseudonym-qualified identifier instead.
	ErrAmbiguousName = errors.New("display name is ambiguous")
)

// ValidationError reports a rejected input value, such as an empty or
// over-long display name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " is invalid: " + e.Reason
}

// DeliveryError wraps a transport failure while sending an outbound
// message. It is distinct from ErrNotFound: the target exists but the
// send did not go through.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	if e == nil || e.Err == nil {
		return "delivery failed"
	}
	return "delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
