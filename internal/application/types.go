package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// Config holds the tunable knobs of the session subsystem.
type Config struct {
	// SessionLifetime is the sliding expiry window for a channel. A session
	// read past half this lifetime gets its expiry extended to now+lifetime.
	SessionLifetime time.Duration
	// CodeValidity bounds one-time codes. A code older than this is invalid
	// regardless of what storage says about it.
	CodeValidity time.Duration
	CodeLength   int

	SendThreshold int
	SendWindow    time.Duration

	EmailFrom string

	OAuthStateTTL time.Duration
}

// CookieInstruction is a transport-neutral cookie mutation. The HTTP
// adapter turns these into Set-Cookie headers with the contract attributes
// (HttpOnly, SameSite=Lax).
type CookieInstruction struct {
	Name      string
	Value     string
	ExpiresAt time.Time
	Clear     bool
}

// LoginResult is the converged outcome of both login paths. Every branch of
// OTP and OAuth login produces exactly this shape, so the cookie contract
// cannot drift between them.
type LoginResult struct {
	User       domain.User
	Session    domain.Session
	SetCookies []CookieInstruction
}

// LoggedInUser pairs a resolved user with the session backing it.
type LoggedInUser struct {
	User    domain.User
	Session domain.Session
}

// Aggregation is the full multi-account view of one browser.
type Aggregation struct {
	// Users holds every currently valid account, most freshly
	// authenticated first.
	Users []LoggedInUser
	// ActiveUserID is the pointer-selected account, falling back to the
	// most recently authenticated one when the pointer is stale or absent.
	ActiveUserID uuid.UUID
	// SetCookies clears dead channels and, when the pointer had to be
	// re-aimed, rewrites it.
	SetCookies []CookieInstruction
}

// SessionItem is the revocation-UI projection of a session row.
type SessionItem struct {
	SessionID  uuid.UUID `json:"session_id"`
	Current    bool      `json:"current"`
	IPAddress  string    `json:"ip_address"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	GeoCity    string    `json:"geo_city"`
	GeoCountry string    `json:"geo_country"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
