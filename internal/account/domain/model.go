package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

type User struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	Email            string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string       `json:"-" gorm:"type:text;not null"`
	Role             Role         `json:"role" gorm:"type:text;not null;default:user"`
	EmailVerified    bool         `json:"email_verified" gorm:"not null;default:false"`
	PlanID           *string      `json:"plan_id"`
	PlanExpiresAt    *time.Time   `json:"plan_expires_at"`
	StripeCustomerID *string      `json:"-"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	SetStripeCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) error
}

type Service interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	Register(ctx context.Context, email, password string, role Role) (*User, error)
	// EnsureUser creates the user when the email is unknown and leaves an
	// existing user untouched.
	EnsureUser(ctx context.Context, email, password string, role Role) (*User, error)
	SetStripeCustomerID(ctx context.Context, id snowflake.ID, customerID string) error
}
