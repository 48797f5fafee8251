package domain

import "errors"

var (
	// ErrNetworkFailure covers transport errors, non-2xx responses and
	// success=false envelopes from the movies API.
	ErrNetworkFailure = errors.New("network failure")
	// ErrMalformedResponse is returned when a payload deviates from the
	// expected shape. Callers treat it like ErrNetworkFailure.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrStorageFailure wraps favorites storage read/write errors. The ledger
	// swallows them and reports the latest through Ledger.StorageErr.
	ErrStorageFailure = errors.New("storage failure")
)
