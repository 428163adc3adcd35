package ports

import "github.com/google/uuid"

// CookieSealer encrypts and authenticates the per-user channel payload.
// The payload is only ever a session id; the embedded user id in the
// cookie *name* is never trusted without an ownership check against the
// stored row.
type CookieSealer interface {
	Seal(sessionID uuid.UUID) (string, error)
	Open(sealed string) (uuid.UUID, error)
}
