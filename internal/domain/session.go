package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientMetadata is request-derived context stored with a session.
// Geo fields come from the resolver collaborator at creation time and are
// deliberately left alone on refresh, so a refresh from a VPN hop does not
// overwrite where the login actually happened.
type ClientMetadata struct {
	IPAddress  string
	Browser    string
	OS         string
	UserAgent  string
	GeoCity    string
	GeoRegion  string
	GeoCountry string
}

// Session is one durable login of one user in one browser.
// A browser can hold many of these at once, one per signed-in account.
type Session struct {
	SessionID  uuid.UUID
	UserID     uuid.UUID
	IPAddress  string
	Browser    string
	OS         string
	UserAgent  string
	GeoCity    string
	GeoRegion  string
	GeoCountry string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time
}

// LoginCode is a hashed one-time code bound to an email address.
// Login codes survive successful verification (mail scanners follow links
// on the user's behalf); a worker sweep bounds their lifetime instead.
type LoginCode struct {
	CodeID    uuid.UUID
	Email     string
	CodeHash  string
	CreatedAt time.Time
}

// EmailChangeCode is a hashed one-time code bound to a user id, used to
// confirm a new address. Unlike login codes these are strictly single-use.
type EmailChangeCode struct {
	CodeID    uuid.UUID
	UserID    uuid.UUID
	NewEmail  string
	CodeHash  string
	CreatedAt time.Time
}
