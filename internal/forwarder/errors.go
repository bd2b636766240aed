package forwarder

import (
	"errors"
	"fmt"
)

// ErrEmptyPayload marks a blank decision or error payload, rejected before
// any network call.
var ErrEmptyPayload = errors.New("payload required")

// ConflictError marks a 409 from the Comparer or the legacy partner. It
// signals an expected, benign race (duplicate or out-of-order redelivery)
// and is never counted as an operational fault.
type ConflictError struct {
	Mrn string
	Hop string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict at %s for mrn %s", e.Hop, e.Mrn)
}

// ComparerError marks a non-success response from the reconciliation
// service.
type ComparerError struct {
	Mrn    string
	Status int
}

func (e ComparerError) Error() string {
	return fmt.Sprintf("comparer returned %d for mrn %s", e.Status, e.Mrn)
}

// ReleaseError marks a failed release of the authoritative answer to the
// legacy partner.
type ReleaseError struct {
	Mrn    string
	Target string
	Status int
	Err    error
}

func (e ReleaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("release to %s failed for mrn %s: %v", e.Target, e.Mrn, e.Err)
	}
	return fmt.Sprintf("release to %s returned %d for mrn %s", e.Target, e.Status, e.Mrn)
}

func (e ReleaseError) Unwrap() error { return e.Err }

// IsConflict reports whether err is (or wraps) a benign conflict.
func IsConflict(err error) bool {
	var conflict ConflictError
	return errors.As(err, &conflict)
}
