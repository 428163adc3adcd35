package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string    `gorm:"column:email"`
	Name          string    `gorm:"column:name"`
	EmailVerified bool      `gorm:"column:email_verified"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type customerModel struct {
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (customerModel) TableName() string { return "customers" }

type sessionModel struct {
	SessionID  uuid.UUID `gorm:"column:session_id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id"`
	IPAddress  *string   `gorm:"column:ip_address"`
	Browser    string    `gorm:"column:browser"`
	OS         string    `gorm:"column:os"`
	UserAgent  string    `gorm:"column:user_agent"`
	GeoCity    string    `gorm:"column:geo_city"`
	GeoRegion  string    `gorm:"column:geo_region"`
	GeoCountry string    `gorm:"column:geo_country"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
	ExpiresAt  time.Time `gorm:"column:expires_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type loginCodeModel struct {
	CodeID    uuid.UUID `gorm:"column:code_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email"`
	CodeHash  string    `gorm:"column:code_hash"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (loginCodeModel) TableName() string { return "login_codes" }

type emailChangeCodeModel struct {
	CodeID    uuid.UUID `gorm:"column:code_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	NewEmail  string    `gorm:"column:new_email"`
	CodeHash  string    `gorm:"column:code_hash"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (emailChangeCodeModel) TableName() string { return "email_change_codes" }

type oauthAccountModel struct {
	LinkID        uuid.UUID `gorm:"column:link_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id"`
	Provider      string    `gorm:"column:provider"`
	Subject       string    `gorm:"column:subject"`
	ProviderEmail string    `gorm:"column:provider_email"`
	LinkedAt      time.Time `gorm:"column:linked_at"`
}

func (oauthAccountModel) TableName() string { return "oauth_accounts" }

type authOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }
