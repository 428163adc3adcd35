package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the dashboard identity this service authenticates.
// It carries only the fields the session subsystem reads; everything else
// about a user lives with the owning modules.
type User struct {
	UserID        uuid.UUID
	Email         string
	Name          string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CustomerProfile is the billing-facing twin of a User.
// Every logged-in user must have exactly one; login paths self-heal a
// missing profile before handing the user to the rest of the system.
type CustomerProfile struct {
	CustomerID uuid.UUID
	UserID     uuid.UUID
	CreatedAt  time.Time
}

// OAuthAccount links a provider identity to a local user.
// At most one local user per (provider, subject) pair.
type OAuthAccount struct {
	LinkID        uuid.UUID
	UserID        uuid.UUID
	Provider      string
	Subject       string
	ProviderEmail string
	LinkedAt      time.Time
}

// ProviderProfile is the identity returned by an OAuth code exchange.
type ProviderProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
