package repo

import (
	"errors"
	"fmt"
)

// Store error taxonomy. "Not found" is an expected outcome of a lookup;
// ErrStoreUnavailable wraps transient driver failures so callers can decide
// to leave work for a later pass instead of terminally rejecting it.
var (
	ErrNotFound         = errors.New("record not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
