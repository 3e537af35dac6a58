package lessons

import "errors"

var (
	// ErrSubjectNotAvailable is returned when a commit names subjects that
	// are not the next subjects the allocator would offer, or when the
	// daily quota cannot cover them.
	ErrSubjectNotAvailable = errors.New("subjects are not available for lessons")
)
