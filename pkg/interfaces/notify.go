package interfaces

import "askrelay/pkg/types"

// Notifier is the out-of-band UI event sink. The socket handler calls
// SessionCreated once per registered session; delivery is best-effort and
// failures never invalidate the session.
type Notifier interface {
	// SessionCreated announces a newly registered pending session
	SessionCreated(event types.SessionCreatedEvent) error
}
