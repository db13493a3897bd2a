package collab

import "errors"

// Sentinel errors for common session and room error conditions.
var (
	// ErrSessionClosed is returned when an operation is attempted on a closed session.
	ErrSessionClosed = errors.New("collab: session closed")

	// ErrInvalidRoom is returned when a room reference has an unknown type or empty id.
	ErrInvalidRoom = errors.New("collab: invalid room")

	// ErrIdentityRequired reports an operation that needs an identified session.
	ErrIdentityRequired = errors.New("collab: identity required")

	// ErrSendQueueFull is returned when a session's outbound queue is full
	// and a message is dropped.
	ErrSendQueueFull = errors.New("collab: send queue full")
)
