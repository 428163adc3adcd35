package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// EmailSender delivers templated mail. Delivery status comes back inline;
// this service never retries sends itself, it only surfaces the outcome.
type EmailSender interface {
	SendTemplate(ctx context.Context, template, to, from string, vars map[string]string) error
}

// OAuthProviderClient exchanges an authorization code for a verified
// provider profile. Both halves of the exchange (token, then profile) are
// opaque here; a failure of either surfaces as ErrProviderFetchFailed.
type OAuthProviderClient interface {
	ExchangeCode(ctx context.Context, provider, code, verifier string) (domain.ProviderProfile, error)
	BuildAuthorizeURL(provider, redirectURI, state, challenge string) (string, error)
}

// GeoResolver maps a client IP to coarse location fields.
// It is a collaborator because real resolution needs an external database;
// a static resolver is acceptable for deployments that do not carry one.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (city, region, country string)
}

// SendThrottleStore bounds one-time-code sends per key within a window.
type SendThrottleStore interface {
	// Allow increments the counter for key and reports whether the count
	// is still at or under the threshold for the window.
	Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error)
}

// OAuthState is the short-lived server-side half of an authorize redirect.
// Storing the PKCE verifier here keeps it off the browser entirely.
type OAuthState struct {
	Provider     string
	RedirectURI  string
	CodeVerifier string
	// LinkUserID is set for the account-settings linking flow, where the
	// callback must attach the provider identity to an already-logged-in
	// user instead of logging anyone in.
	LinkUserID uuid.UUID
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// OAuthStateStore persists authorize state between redirect and callback.
type OAuthStateStore interface {
	Put(ctx context.Context, state string, value OAuthState, ttl time.Duration) error
	Get(ctx context.Context, state string) (*OAuthState, error)
	Delete(ctx context.Context, state string) error
}

// SweepLock serializes the cleanup sweep across worker replicas.
type SweepLock interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// EventPublisher delivers drained outbox payloads to a broker or log.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
