package rooms

import "errors"

var (
	// ErrNotFound means the room or the membership does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is not the host of the room
	ErrForbidden = errors.New("forbidden")
	// ErrPreconditionFailed covers full rooms, wrong state and too few players
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConflict is a room code collision. The registry retries it and never returns it.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable wraps repository I/O failures
	ErrUnavailable = errors.New("unavailable")
)
