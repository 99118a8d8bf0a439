package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/modelrail/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const userColumns = `id, email, password_hash, role, email_verified, plan_id, plan_expires_at,
	stripe_customer_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.EmailVerified,
		u.PlanID,
		u.PlanExpiresAt,
		u.StripeCustomerID,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.findOne(ctx, db, `email = ?`, email)
}

func (r *repo) SetStripeCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET stripe_customer_id = ?, updated_at = ? WHERE id = ?`,
		customerID, now, id,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.User, error) {
	var u domain.User
	res := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(&u)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &u, nil
}
