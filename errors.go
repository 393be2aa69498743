package thumbcache

import "errors"

var (
	// ErrEmptyName is returned when the cache directory name is empty.
	ErrEmptyName = errors.New("thumbcache: cache name is empty")

	// ErrEmptyGroup is returned when a group id is empty.
	ErrEmptyGroup = errors.New("thumbcache: group id is empty")

	// ErrInvalidThumbnailSize is returned when a thumbnail dimension is not positive.
	ErrInvalidThumbnailSize = errors.New("thumbcache: thumbnail dimensions must be > 0")

	// ErrInvalidConcurrency is returned when the load concurrency is not positive.
	ErrInvalidConcurrency = errors.New("thumbcache: load concurrency must be > 0")
)

// Error is a diagnostic raised by a strict [Sink].
//
// In test mode every filesystem failure the cache would normally swallow is
// surfaced as an *Error from the operation that hit it.
type Error struct {
	// Msg is the joined diagnostic message.
	Msg string
	// Err is the underlying error, if the diagnostic carried one.
	Err error
}

func (e *Error) Error() string {
	return "thumbcache: " + e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
