package listings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
)

const (
	defaultSweepBatch     = 500
	defaultLookaheadDays  = 8
	maxBatchesPerSweepRun = 10000
)

type SweeperParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Notifier  notifications.Sink
	Metrics   *metrics.DomainMetrics
	Lookahead time.Duration
	BatchSize int
	Logger    *logger.Logger
}

// Sweeper moves live listings to EXPIRED or EXPIRING_SOON based on expires_at.
type Sweeper struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	notifier  notifications.Sink
	metrics   *metrics.DomainMetrics
	lookahead time.Duration
	batchSize int
	logg      *logger.Logger
	now       func() time.Time
}

// SweepResult counts the transitions applied by one run.
type SweepResult struct {
	Expired      int
	ExpiringSoon int
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NopSink{}
	}
	lookahead := params.Lookahead
	if lookahead <= 0 {
		lookahead = defaultLookaheadDays * 24 * time.Hour
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Sweeper{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		notifier:  notifier,
		metrics:   params.Metrics,
		lookahead: lookahead,
		batchSize: batch,
		logg:      logg,
		now:       time.Now,
	}, nil
}

type sweepPass struct {
	to           enums.ListingStatus
	auditType    enums.ListingAuditType
	message      string
	notification enums.NotificationType
	title        string
	lock         func(ctx context.Context, repo Repository, limit int) ([]models.Listing, error)
}

// Run applies both passes against a single captured now. Expired listings are
// handled first so a past-due listing never lands in EXPIRING_SOON. Each batch
// commits on its own; owners are notified after their batch commits.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()
	horizon := now.Add(s.lookahead)

	passes := []sweepPass{
		{
			to:           enums.ListingStatusExpired,
			auditType:    enums.ListingAuditExpired,
			message:      "listing expired",
			notification: enums.NotificationTypeListingExpired,
			title:        "Listing expired",
			lock: func(ctx context.Context, repo Repository, limit int) ([]models.Listing, error) {
				return repo.LockExpired(ctx, now, limit)
			},
		},
		{
			to:           enums.ListingStatusExpiringSoon,
			auditType:    enums.ListingAuditExpiringSoon,
			message:      "listing expires soon",
			notification: enums.NotificationTypeListingExpiringSoon,
			title:        "Listing expiring soon",
			lock: func(ctx context.Context, repo Repository, limit int) ([]models.Listing, error) {
				return repo.LockExpiring(ctx, now, horizon, limit)
			},
		},
	}

	var (
		result SweepResult
		errs   error
	)
	for _, pass := range passes {
		moved, err := s.runPass(ctx, now, pass)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sweep to %s: %w", pass.to, err))
		}
		s.metrics.AddSweepTransitions(string(pass.to), moved)
		switch pass.to {
		case enums.ListingStatusExpired:
			result.Expired = moved
		case enums.ListingStatusExpiringSoon:
			result.ExpiringSoon = moved
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"sweep_now":     now,
		"expired":       result.Expired,
		"expiring_soon": result.ExpiringSoon,
	})
	s.logg.Info(logCtx, "listing sweep complete")
	return result, errs
}

func (s *Sweeper) runPass(ctx context.Context, now time.Time, pass sweepPass) (int, error) {
	total := 0
	for i := 0; i < maxBatchesPerSweepRun; i++ {
		var moved []models.Listing
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			batch, err := pass.lock(ctx, repo, s.batchSize)
			if err != nil {
				return err
			}
			for idx := range batch {
				listing := &batch[idx]
				from := listing.Status
				if err := repo.Update(ctx, listing.ID, map[string]any{"status": pass.to}); err != nil {
					return err
				}
				listing.Status = pass.to
				if err := RecordTransition(ctx, tx, s.repo, s.outbox, Transition{
					Listing:   listing,
					From:      from,
					AuditType: pass.auditType,
					Message:   pass.message,
					Actor:     auth.Actor{},
					At:        now,
				}); err != nil {
					return err
				}
			}
			moved = batch
			return nil
		})
		if err != nil {
			return total, err
		}

		total += len(moved)
		for _, listing := range moved {
			s.notifier.Notify(ctx, notifications.Message{
				UserID:  listing.OwnerID,
				Type:    pass.notification,
				Title:   pass.title,
				Message: sweepMessage(listing, pass.to),
				Link:    listingLink(listing.ID),
			})
		}
		if len(moved) < s.batchSize {
			return total, nil
		}
	}
	return total, nil
}

func sweepMessage(listing models.Listing, to enums.ListingStatus) string {
	if to == enums.ListingStatusExpired {
		return fmt.Sprintf("%q has expired and is no longer visible.", listing.Title)
	}
	if listing.ExpiresAt == nil {
		return fmt.Sprintf("%q expires soon.", listing.Title)
	}
	return fmt.Sprintf("%q expires on %s.", listing.Title, listing.ExpiresAt.UTC().Format("2006-01-02"))
}
