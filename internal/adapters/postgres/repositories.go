package postgres

import (
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// Repositories bundles every Postgres-backed port implementation.
// Construction is explicit so the runtime wires handles, not globals.
type Repositories struct {
	Sessions  ports.SessionRepository
	Codes     ports.LoginCodeRepository
	Users     ports.UserDirectory
	Customers ports.CustomerDirectory
	OAuth     ports.OAuthAccountDirectory
	Outbox    ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Sessions:  &sessionRepository{db: db},
		Codes:     &loginCodeRepository{db: db},
		Users:     &userRepository{db: db},
		Customers: &customerRepository{db: db},
		OAuth:     &oauthAccountRepository{db: db},
		Outbox:    &outboxRepository{db: db},
	}
}
