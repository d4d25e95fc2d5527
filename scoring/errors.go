package scoring

import "errors"

var (
	// ErrCoherenceFuncRequired is returned when a nil coherence function
	// is supplied.
	ErrCoherenceFuncRequired = errors.New("coherence function required")
)
