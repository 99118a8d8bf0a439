package service

import (
	"context"
	"errors"
	"fmt"

	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/notify/domain"
	"go.uber.org/zap"
)

// Notifier fans admin alerts out to every configured provider.
type Notifier struct {
	log       *zap.Logger
	providers []domain.Provider
}

func NewNotifier(log *zap.Logger, providers ...domain.Provider) *Notifier {
	return &Notifier{
		log:       log.Named("notify"),
		providers: providers,
	}
}

func (n *Notifier) Providers() int { return len(n.providers) }

// AccountsFailed reports AI accounts whose health check ended in failed.
func (n *Notifier) AccountsFailed(ctx context.Context, results []aiaccountdomain.HealthCheckResult) error {
	var failed []aiaccountdomain.HealthCheckResult
	for _, r := range results {
		if r.Status == aiaccountdomain.HealthStatusFailed {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 || len(n.providers) == 0 {
		return nil
	}

	msg := domain.Message{
		Title: fmt.Sprintf("AI account health check: %d account(s) failed", len(failed)),
	}
	for _, r := range failed {
		name := r.AccountName
		if name == "" {
			name = r.AccountID
		}
		msg.Lines = append(msg.Lines, fmt.Sprintf("- %s (%s) score=%d: %s", name, r.AccountID, r.HealthScore, r.Message))
	}
	return n.Send(ctx, msg)
}

// Send delivers msg to every provider and joins the failures.
func (n *Notifier) Send(ctx context.Context, msg domain.Message) error {
	var errs []error
	for _, p := range n.providers {
		if err := p.Send(ctx, msg); err != nil {
			n.log.Warn("notification delivery failed", zap.String("provider", p.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
