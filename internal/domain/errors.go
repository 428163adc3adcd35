package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCode is returned for a login or email-change code that does not
	// match any stored record. It is distinct from ErrExpiredCode so the UI can
	// tell the user whether to retype the code or request a fresh one.
	ErrInvalidCode = errors.New("invalid code")
	// ErrExpiredCode is returned for a code that matched but is past its
	// validity window. The record's storage state is irrelevant at that point.
	ErrExpiredCode = errors.New("expired code")
	// ErrUserNotFound hides nothing: this service is passwordless, so there is
	// no credential pair to protect against enumeration on the verify path.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionExpired signals a session row read after its expiry. Callers
	// must treat it as logged-out, never as a technical failure.
	ErrSessionExpired    = errors.New("session expired")
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrProviderFetchFailed wraps failures talking to the OAuth provider.
	ErrProviderFetchFailed = errors.New("provider fetch failed")
	// ErrMissingRequiredField marks a programmer error at session creation.
	// It is never mapped to a user-facing message; it surfaces as a 500.
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrRateLimited          = errors.New("rate limited")
)
