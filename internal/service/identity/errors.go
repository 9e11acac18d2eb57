package identity

import "errors"

var (
	// ErrInvalidIdentity is returned when a source record carries no
	// usable email.
	ErrInvalidIdentity = errors.New("record has no valid email identity")

	// ErrAmbiguousIdentity is returned when one normalized email maps
	// onto more than one stored customer. The store enforces uniqueness,
	// so this indicates corruption and is never resolved silently.
	ErrAmbiguousIdentity = errors.New("multiple customers share one email identity")
)
