package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

const (
	defaultPendingTTL  = 48 * time.Hour
	orderTTLBatchSize  = 200
	maxOrderTTLBatches = 50
)

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderExpirer
	TTL       time.Duration
	BatchSize int
}

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// NewOrderTTLJob builds the cron job that expires unpaid orders past their TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = orderTTLBatchSize
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run expires pending orders in batches until a short batch signals the
// backlog is drained.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for i := 0; i < maxOrderTTLBatches; i++ {
		expired, err := j.orders.ExpirePending(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			return fmt.Errorf("expire pending orders: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return nil
}
