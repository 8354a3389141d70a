package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/payloads"
)

const (
	defaultThreshold = 10
	maxReasonLength  = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo      Repository
	Listings  listings.Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Notifier  notifications.Sink
	Metrics   *metrics.DomainMetrics
	Threshold int
	Logger    *logger.Logger
}

// Service records user reports and sends heavily reported listings back to review.
type Service struct {
	repo      Repository
	listings  listings.Repository
	tx        txRunner
	outbox    outbox.Emitter
	notifier  notifications.Sink
	metrics   *metrics.DomainMetrics
	threshold int
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Listings == nil {
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
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:      params.Repo,
		listings:  params.Listings,
		tx:        params.Tx,
		outbox:    params.Outbox,
		notifier:  notifier,
		metrics:   params.Metrics,
		threshold: threshold,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Result describes the listing after a report was recorded.
type Result struct {
	ListingID    uuid.UUID           `json:"listing_id"`
	ReportCount  int                 `json:"report_count"`
	Status       enums.ListingStatus `json:"status"`
	SentToReview bool                `json:"sent_to_review"`
}

// RecordReport stores the report and increments report_count under the listing
// row lock. The review transition fires only on the increment that crosses the
// threshold.
func (s *Service) RecordReport(ctx context.Context, actor auth.Actor, listingID uuid.UUID, reason string) (*Result, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if len(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}

	var (
		result  Result
		listing models.Listing
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingRepo := s.listings.WithTx(tx)
		locked, err := listingRepo.FindForUpdate(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if locked.OwnerID == actor.UserID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot report your own listing")
		}

		if err := s.repo.WithTx(tx).Create(ctx, &models.ListingReport{
			ListingID:  locked.ID,
			ReporterID: actor.UserID,
			Reason:     reason,
		}); err != nil {
			if db.IsUniqueViolation(err, reporterConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "listing already reported by this user")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create report")
		}

		before := locked.ReportCount
		after := before + 1
		updates := map[string]any{"report_count": after}
		crossed := before < s.threshold && after >= s.threshold && locked.Status.IsLive()
		from := locked.Status
		if crossed {
			updates["status"] = enums.ListingStatusPendingReview
		}
		if err := listingRepo.Update(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update report count")
		}
		locked.ReportCount = after

		if crossed {
			locked.Status = enums.ListingStatusPendingReview
			now := s.now().UTC()
			if err := listings.RecordTransition(ctx, tx, s.listings, s.outbox, listings.Transition{
				Listing:   locked,
				From:      from,
				AuditType: enums.ListingAuditReportThreshold,
				Message:   fmt.Sprintf("report threshold of %d reached", s.threshold),
				At:        now,
			}); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventListingReportThreshold,
				AggregateType: enums.AggregateListing,
				AggregateID:   locked.ID,
				OccurredAt:    now,
				Data: payloads.ListingReportThresholdEvent{
					ListingID:   locked.ID,
					OwnerID:     locked.OwnerID,
					ReportCount: after,
					Threshold:   s.threshold,
				},
			}); err != nil {
				return err
			}
		}

		listing = *locked
		result = Result{
			ListingID:    locked.ID,
			ReportCount:  after,
			Status:       locked.Status,
			SentToReview: crossed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithListingID(ctx, listingID.String())
	if !result.SentToReview {
		s.logg.Debug(ctx, "listing report recorded")
		return &result, nil
	}

	s.metrics.IncReportThreshold()
	s.logg.Warn(s.logg.WithField(ctx, "report_count", result.ReportCount), "listing sent back to review after reports")
	s.notifier.Notify(ctx, notifications.Message{
		UserID:  listing.OwnerID,
		Type:    enums.NotificationTypeListingUnderReview,
		Title:   "Listing under review",
		Message: fmt.Sprintf("%q received several reports and is back under review.", listing.Title),
		Link:    "/properties/" + listing.ID.String(),
	})
	return &result, nil
}
