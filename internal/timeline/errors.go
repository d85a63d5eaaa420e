package timeline

import "errors"

var (
	// ErrInvalidReference is returned when an operation targets a clip id that
	// is not on the timeline. The store is left untouched.
	ErrInvalidReference = errors.New("invalid clip reference")

	// ErrInvariantViolation is returned when an operation would break a clip or
	// timeline invariant (edge split, zero-length selection, bad duration).
	ErrInvariantViolation = errors.New("invariant violation attempt")

	// ErrEmptyTimeline is returned by operations that need at least one clip.
	ErrEmptyTimeline = errors.New("timeline is empty")

	// ErrUnsupportedFormat is returned by ImportClip for files the playback and
	// export collaborators cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported media format")
)
