package kitty

import "errors"

// ErrIndexOverflow is returned when the id space is exhausted.
var ErrIndexOverflow = errors.New("kitty index overflow")

// ErrNotFound is returned when a referenced kitty has no registry entry.
var ErrNotFound = errors.New("kitty not found")

// ErrNotOwner is returned when the caller does not own the referenced kitty.
var ErrNotOwner = errors.New("caller is not the kitty owner")

// ErrSameParent is returned when breeding is requested with identical parents.
var ErrSameParent = errors.New("breeding requires two different parents")

// IsRejection reports whether err is one of the transition precondition
// failures above, as opposed to a storage or transport failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrIndexOverflow) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrSameParent)
}
