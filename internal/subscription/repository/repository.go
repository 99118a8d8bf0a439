package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/modelrail/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, p *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (
			id, name, description, price, currency, duration_days, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Currency,
		p.DurationDays,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindPlan(ctx context.Context, db *gorm.DB, id string) (*domain.Plan, error) {
	var p domain.Plan
	res := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, currency, duration_days, active, created_at, updated_at
		 FROM plans
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListActivePlans(ctx context.Context, db *gorm.DB) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, currency, duration_days, active, created_at, updated_at
		 FROM plans
		 WHERE active = ?
		 ORDER BY duration_days ASC, id ASC`,
		true,
	).Scan(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) SetUserPlan(ctx context.Context, db *gorm.DB, userID snowflake.ID, planID string, expiresAt, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET plan_id = ?, plan_expires_at = ?, updated_at = ? WHERE id = ?`,
		planID, expiresAt, now, userID,
	)
	return res.RowsAffected, res.Error
}
