package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// Service orchestrates the multi-account session subsystem. Every store and
// collaborator is an injected handle; there is no ambient state, so tests
// substitute in-memory fakes without patching anything.
type Service struct {
	cfg           Config
	sessions      ports.SessionRepository
	codes         ports.LoginCodeRepository
	users         ports.UserDirectory
	customers     ports.CustomerDirectory
	oauthAccounts ports.OAuthAccountDirectory
	outbox        ports.OutboxRepository
	email         ports.EmailSender
	provider      ports.OAuthProviderClient
	geo           ports.GeoResolver
	throttle      ports.SendThrottleStore
	oauthState    ports.OAuthStateStore
	sealer        ports.CookieSealer
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Sessions      ports.SessionRepository
	Codes         ports.LoginCodeRepository
	Users         ports.UserDirectory
	Customers     ports.CustomerDirectory
	OAuthAccounts ports.OAuthAccountDirectory
	Outbox        ports.OutboxRepository
	Email         ports.EmailSender
	Provider      ports.OAuthProviderClient
	Geo           ports.GeoResolver
	Throttle      ports.SendThrottleStore
	OAuthState    ports.OAuthStateStore
	Sealer        ports.CookieSealer
	// Now overrides the clock, for tests that walk sessions across the
	// refresh and expiry boundaries. Defaults to time.Now in UTC.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.SessionLifetime <= 0 {
		cfg.SessionLifetime = 7 * 24 * time.Hour
	}
	if cfg.CodeValidity <= 0 {
		cfg.CodeValidity = 10 * time.Minute
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 12
	}
	if cfg.SendThreshold <= 0 {
		cfg.SendThreshold = 5
	}
	if cfg.SendWindow <= 0 {
		cfg.SendWindow = 15 * time.Minute
	}
	if cfg.OAuthStateTTL <= 0 {
		cfg.OAuthStateTTL = 10 * time.Minute
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:           cfg,
		sessions:      deps.Sessions,
		codes:         deps.Codes,
		users:         deps.Users,
		customers:     deps.Customers,
		oauthAccounts: deps.OAuthAccounts,
		outbox:        deps.Outbox,
		email:         deps.Email,
		provider:      deps.Provider,
		geo:           deps.Geo,
		throttle:      deps.Throttle,
		oauthState:    deps.OAuthState,
		sealer:        deps.Sealer,
		nowFn:         nowFn,
	}
}

// ensureCustomer enforces the one-profile-per-user invariant. Login paths
// call this before treating a user as logged in anywhere else.
func (s *Service) ensureCustomer(ctx context.Context, userID uuid.UUID) (domain.CustomerProfile, error) {
	profile, err := s.customers.QueryCustomerByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.CustomerProfile{}, err
	}
	return s.customers.CreateCustomer(ctx, userID, s.nowFn())
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload []byte) {
	if s.outbox == nil {
		return
	}
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   s.nowFn(),
	})
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// HashCode is the one-way digest used for code storage and comparison.
// The plaintext code is never persisted.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(normalizeCode(code)))
	return hex.EncodeToString(sum[:])
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
