package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"go.uber.org/zap"
)

const errorWindow = 24 * time.Hour

// BatchCheck scores the given accounts one after another in input order.
func (s *Service) BatchCheck(ctx context.Context, ids []string) (*domain.BatchResult, error) {
	if len(ids) == 0 {
		return nil, domain.ErrEmptyAccountIDs
	}

	out := &domain.BatchResult{Results: make([]domain.HealthCheckResult, 0, len(ids))}
	var failed []domain.HealthCheckResult

	for _, id := range ids {
		result := s.checkOne(ctx, id)
		out.Results = append(out.Results, result)

		switch result.Status {
		case domain.HealthStatusHealthy:
			out.HealthyCount++
		case domain.HealthStatusWarning:
			out.WarningCount++
		default:
			out.FailedCount++
			failed = append(failed, result)
		}
	}

	out.TotalChecked = len(out.Results)
	out.Message = fmt.Sprintf("批量健康检查完成：健康 %d 个，警告 %d 个，异常 %d 个",
		out.HealthyCount, out.WarningCount, out.FailedCount)

	s.log.Info("batch health check finished",
		zap.Int("total", out.TotalChecked),
		zap.Int("healthy", out.HealthyCount),
		zap.Int("warning", out.WarningCount),
		zap.Int("failed", out.FailedCount))

	if len(failed) > 0 && s.notifier != nil {
		if err := s.notifier.AccountsFailed(ctx, failed); err != nil {
			s.log.Warn("failed to notify about unhealthy accounts", zap.Error(err))
		}
	}
	return out, nil
}

// checkOne isolates a single account: lookup and persistence errors are
// logged and folded into the result instead of aborting the batch.
func (s *Service) checkOne(ctx context.Context, id string) (result domain.HealthCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("health check item panicked", zap.String("account_id", id), zap.Any("panic", r))
			result = domain.HealthCheckResult{
				AccountID: id,
				Status:    domain.HealthStatusFailed,
				Message:   fmt.Sprintf("健康检查异常: %v", r),
				CheckedAt: s.clock.Now(ctx),
			}
		}
	}()

	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		s.log.Error("failed to load account", zap.String("account_id", id), zap.Error(err))
		return domain.HealthCheckResult{
			AccountID: id,
			Status:    domain.HealthStatusFailed,
			Message:   fmt.Sprintf("健康检查异常: %v", err),
			CheckedAt: s.clock.Now(ctx),
		}
	}
	if account == nil {
		return domain.HealthCheckResult{
			AccountID: id,
			Status:    domain.HealthStatusFailed,
			Message:   msgNotFound,
			CheckedAt: s.clock.Now(ctx),
		}
	}

	result = s.scorer.Check(ctx, *account)

	if err := s.repo.ApplyHealthUpdate(ctx, s.db, account.ID, healthUpdate(*account, result)); err != nil {
		s.log.Error("failed to persist health check",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
	return result
}

// healthUpdate bumps the error counter on failure; an error older than the
// window restarts the count.
func healthUpdate(account domain.Account, result domain.HealthCheckResult) domain.HealthUpdate {
	update := domain.HealthUpdate{
		HealthScore:       result.HealthScore,
		LastHealthCheckAt: result.CheckedAt,
	}
	if result.Status != domain.HealthStatusFailed {
		return update
	}

	count := account.ErrorCount24h + 1
	if account.LastErrorAt != nil && result.CheckedAt.Sub(*account.LastErrorAt) >= errorWindow {
		count = 1
	}
	at := result.CheckedAt
	update.ErrorCount24h = &count
	update.LastErrorAt = &at
	return update
}
