package domain

import "errors"

var (
	// ErrSystemNotFound signals a missing solar system.
	ErrSystemNotFound = errors.New("system not found")
	// ErrConstellationNotFound signals a missing constellation.
	ErrConstellationNotFound = errors.New("constellation not found")
	// ErrRegionNotFound signals a missing region.
	ErrRegionNotFound = errors.New("region not found")
	// ErrTypeNameNotFound signals a missing type name.
	ErrTypeNameNotFound = errors.New("type name not found")
	// ErrInvalidQuery signals a malformed or out-of-range query parameter.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSnapshotUnavailable signals that no spatial snapshot has been
	// published yet.
	ErrSnapshotUnavailable = errors.New("spatial snapshot unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
