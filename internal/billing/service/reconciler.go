package service

import (
	"context"
	"maps"
	"strings"

	"github.com/railzwaylabs/modelrail/internal/billing/domain"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reconciler moves billing records to the state reported by the gateway.
type Reconciler struct {
	repo  domain.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewReconciler(repo domain.Repository, clk clock.Clock, log *zap.Logger) *Reconciler {
	return &Reconciler{
		repo:  repo,
		clock: clk,
		log:   log.Named("billing.reconciler"),
	}
}

// Apply sets status on the record identified by externalID and merges patch
// into its metadata. Existing metadata keys not named in patch are kept. A
// nil record and nil error mean no row matched or the record is already
// completed or canceled.
func (r *Reconciler) Apply(ctx context.Context, tx *gorm.DB, externalID string, status domain.RecordStatus, patch map[string]any) (*domain.BillingRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}

	record, err := r.repo.FindByExternalID(ctx, tx, externalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		r.log.Info("no billing record for payment", zap.String("external_payment_id", externalID), zap.String("status", string(status)))
		return nil, nil
	}

	merged := make(map[string]any, len(record.Metadata)+len(patch))
	maps.Copy(merged, record.Metadata)
	maps.Copy(merged, patch)

	now := r.clock.Now(ctx)
	applied, err := r.repo.UpdateStatus(ctx, tx, record.ID, status, merged, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		r.log.Info("billing record already terminal",
			zap.String("record_id", record.ID.String()),
			zap.String("status", string(record.Status)),
			zap.String("ignored", string(status)),
		)
		return nil, nil
	}

	r.log.Info("billing record reconciled",
		zap.String("record_id", record.ID.String()),
		zap.String("from", string(record.Status)),
		zap.String("to", string(status)),
	)

	record.Status = status
	record.Metadata = merged
	record.UpdatedAt = now
	return record, nil
}
