package formation

import "errors"

var (
	// ErrInvalidRequest is returned before any search when a request fails
	// validation. The wrapped error lists every problem found.
	ErrInvalidRequest = errors.New("invalid formation request")
	// ErrUnknownAlgorithm is joined to ErrInvalidRequest when a request names
	// an algorithm no strategy is registered for.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)
