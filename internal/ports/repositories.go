package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// SessionCreateParams captures everything needed to insert a session row.
// UserID and ExpiresAt are mandatory; the repository rejects their absence
// as a programmer error rather than persisting a half-formed session.
type SessionCreateParams struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	Metadata  domain.ClientMetadata
	CreatedAt time.Time
}

// SessionUpdateParams is a partial update. Nil fields are left untouched,
// which is how refresh writes avoid clobbering geo fields with stale data.
type SessionUpdateParams struct {
	ExpiresAt *time.Time
	IPAddress *string
	Browser   *string
	OS        *string
	UserAgent *string
	UpdatedAt time.Time
}

// SessionRepository is durable CRUD for session records.
// Read does not filter expired rows; the channel layer decides
// refresh-versus-delete, so the store must hand back what it has.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	Update(ctx context.Context, sessionID uuid.UUID, params SessionUpdateParams) error
	// Delete is idempotent: deleting an absent id is not an error.
	Delete(ctx context.Context, sessionID uuid.UUID) error
	ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Session, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// LoginCodeRepository stores hashed one-time codes.
// Lookup is by (scope, hash) so the plaintext never reaches storage.
type LoginCodeRepository interface {
	CreateLoginCode(ctx context.Context, email, codeHash string, createdAt time.Time) error
	GetLoginCode(ctx context.Context, email, codeHash string) (domain.LoginCode, error)
	DeleteLoginCodesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CreateEmailChangeCode(ctx context.Context, userID uuid.UUID, newEmail, codeHash string, createdAt time.Time) error
	GetEmailChangeCode(ctx context.Context, userID uuid.UUID, codeHash string) (domain.EmailChangeCode, error)
	DeleteEmailChangeCode(ctx context.Context, codeID uuid.UUID) error
}

// UserDirectory is the external user store consumed at its boundary.
// CreateUser relies on a unique constraint on email; callers requery on
// duplicate-key errors so racing creates converge on one user id.
type UserDirectory interface {
	QueryUser(ctx context.Context, userID uuid.UUID) (domain.User, error)
	QueryUserWithEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, email, name string, emailVerified bool, createdAt time.Time) (domain.User, error)
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string, updatedAt time.Time) error
}

// CustomerDirectory owns the one-profile-per-user invariant's storage side.
type CustomerDirectory interface {
	QueryCustomerByUserID(ctx context.Context, userID uuid.UUID) (domain.CustomerProfile, error)
	CreateCustomer(ctx context.Context, userID uuid.UUID, createdAt time.Time) (domain.CustomerProfile, error)
}

// OAuthAccountDirectory persists provider links.
type OAuthAccountDirectory interface {
	QueryOAuthAccount(ctx context.Context, provider, subject string) (domain.OAuthAccount, error)
	CreateOAuthAccount(ctx context.Context, userID uuid.UUID, provider, subject, providerEmail string, linkedAt time.Time) error
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for auth lifecycle events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
