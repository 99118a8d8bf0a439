package repository

import (
	"context"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ai_accounts (
			id, name, provider, encrypted_credentials, status, health_score,
			error_count_24h, total_requests, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Name,
		a.Provider,
		a.EncryptedCredentials,
		a.Status,
		a.HealthScore,
		a.ErrorCount24h,
		a.TotalRequests,
		a.CreatedAt,
		a.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var account domain.Account
	res := db.WithContext(ctx).Raw(
		`SELECT id, name, provider, encrypted_credentials, status, health_score,
		 error_count_24h, total_requests, last_health_check_at, last_error_at,
		 created_at, updated_at
		 FROM ai_accounts
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&account)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) ApplyHealthUpdate(ctx context.Context, db *gorm.DB, id string, update domain.HealthUpdate) error {
	fields := map[string]any{
		"health_score":         update.HealthScore,
		"last_health_check_at": update.LastHealthCheckAt,
		"updated_at":           update.LastHealthCheckAt,
	}
	if update.ErrorCount24h != nil {
		fields["error_count_24h"] = *update.ErrorCount24h
	}
	if update.LastErrorAt != nil {
		fields["last_error_at"] = *update.LastErrorAt
	}

	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(fields).Error
}
