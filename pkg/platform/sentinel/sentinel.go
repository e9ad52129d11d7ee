package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The API client and stores return
// these (optionally wrapped) so callers can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist on the server
// - ErrNoCredential: no bearer credential available, call never left the client
// - ErrExpired: the held credential is past its expiry
// - ErrStale: a response arrived for a scope that is no longer active
// - ErrUnavailable: the remote API is unreachable or timed out
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoCredential = errors.New("no credential")
	ErrExpired      = errors.New("expired")
	ErrStale        = errors.New("stale")
	ErrUnavailable  = errors.New("unavailable")
)
