package titles

import "errors"

var (
	// ErrCacheRequired is returned when a Generator is built without a cache.
	ErrCacheRequired = errors.New("title cache is required")
	// ErrLoggerRequired is returned when a nil logger is supplied.
	ErrLoggerRequired = errors.New("logger cannot be nil")
)
