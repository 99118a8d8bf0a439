package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/observability"
	"go.uber.org/zap"
)

const (
	pointsCredentialLength = 25
	pointsProbeSuccess     = 50
	pointsFastResponse     = 15
	pointsLowErrorRate     = 10
	penaltyHighErrorRate   = 10

	minCredentialLength = 10
	fastResponse        = 2000 * time.Millisecond
	errorRateWindowCap  = 100
	lowErrorRate        = 0.05
	highErrorRate       = 0.20

	healthyThreshold = 80
	warningThreshold = 60
)

const (
	msgDecryptFailed = "凭据解密失败"
	msgHealthy       = "账号状态良好"
	msgWarning       = "账号状态一般，建议关注"
	msgFailed        = "账号状态异常，需要处理"
	msgNotFound      = "账号不存在"
)

// Scorer turns one account into a HealthCheckResult. It never returns an error.
type Scorer struct {
	creds  domain.CredentialStore
	prober domain.Prober
	clock  clock.Clock
	log    *zap.Logger
}

func NewScorer(creds domain.CredentialStore, prober domain.Prober, clk clock.Clock, log *zap.Logger) *Scorer {
	return &Scorer{
		creds:  creds,
		prober: prober,
		clock:  clk,
		log:    log.Named("aiaccount.scorer"),
	}
}

func (s *Scorer) Check(ctx context.Context, account domain.Account) (result domain.HealthCheckResult) {
	result = domain.HealthCheckResult{
		AccountID:   account.ID,
		AccountName: account.Name,
		CheckedAt:   s.clock.Now(ctx),
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("health check panicked", zap.String("account_id", account.ID), zap.Any("panic", r))
			result.Status = domain.HealthStatusFailed
			result.HealthScore = 0
			result.Message = fmt.Sprintf("健康检查异常: %v", r)
		}
		observability.HealthChecks.WithLabelValues(string(result.Status)).Inc()
	}()

	credential, err := s.creds.Decrypt(account.EncryptedCredentials)
	if err != nil {
		s.log.Warn("credential decrypt failed", zap.String("account_id", account.ID), zap.Error(err))
		result.Status = domain.HealthStatusFailed
		result.Message = msgDecryptFailed
		return result
	}

	score := 0
	if len(credential) > minCredentialLength {
		score += pointsCredentialLength
	}

	probe := s.prober.Probe(ctx, account.Provider, credential)
	result.ResponseTime = probe.ResponseTime.Milliseconds()
	if probe.Success {
		score += pointsProbeSuccess
		if probe.ResponseTime < fastResponse {
			score += pointsFastResponse
		}
	} else {
		s.log.Info("probe failed",
			zap.String("account_id", account.ID),
			zap.String("provider", string(account.Provider)),
			zap.String("reason", probe.Message))
	}

	rate := ErrorRate(account.ErrorCount24h, account.TotalRequests)
	switch {
	case rate < lowErrorRate:
		score += pointsLowErrorRate
	case rate > highErrorRate:
		score -= penaltyHighErrorRate
	}

	score = clamp(score, 0, 100)
	result.HealthScore = score
	result.Status, result.Message = classify(score)
	return result
}

// ErrorRate divides recent errors by request volume capped at 100.
func ErrorRate(errors24h int, totalRequests int64) float64 {
	if totalRequests <= 0 {
		return 0
	}
	denominator := totalRequests
	if denominator > errorRateWindowCap {
		denominator = errorRateWindowCap
	}
	return float64(errors24h) / float64(denominator)
}

func classify(score int) (domain.HealthStatus, string) {
	switch {
	case score >= healthyThreshold:
		return domain.HealthStatusHealthy, msgHealthy
	case score >= warningThreshold:
		return domain.HealthStatusWarning, msgWarning
	default:
		return domain.HealthStatusFailed, msgFailed
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
