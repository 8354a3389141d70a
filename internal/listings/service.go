package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/internal/notifications"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/payloads"
)

const fallbackDurationDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type inventoryDebitor interface {
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tier enums.ListingTier, amount int) error
}

type tierPolicyReader interface {
	TierPolicy(ctx context.Context, tx *gorm.DB, tier enums.ListingTier) (*models.ListingTierPolicy, error)
}

type ServiceParams struct {
	Repo                Repository
	Tx                  txRunner
	Inventory           inventoryDebitor
	Policies            tierPolicyReader
	Outbox              outbox.Emitter
	Notifier            notifications.Sink
	Metrics             *metrics.DomainMetrics
	DefaultDurationDays int
	Logger              *logger.Logger
}

// Service owns the listing state machine for owners and moderators.
type Service struct {
	repo            Repository
	tx              txRunner
	inventory       inventoryDebitor
	policies        tierPolicyReader
	outbox          outbox.Emitter
	notifier        notifications.Sink
	metrics         *metrics.DomainMetrics
	defaultDuration int
	logg            *logger.Logger
	now             func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("tier policy reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NopSink{}
	}
	duration := params.DefaultDurationDays
	if duration <= 0 {
		duration = fallbackDurationDays
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:            params.Repo,
		tx:              params.Tx,
		inventory:       params.Inventory,
		policies:        params.Policies,
		outbox:          params.Outbox,
		notifier:        notifier,
		metrics:         params.Metrics,
		defaultDuration: duration,
		logg:            logg,
		now:             time.Now,
	}, nil
}

type CreateInput struct {
	Title       string
	Description string
	Price       int64
}

// Create stores a DRAFT listing at the NORMAL tier.
func (s *Service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*ListingDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}

	listing := models.Listing{
		ID:          uuid.New(),
		OwnerID:     actor.UserID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Status:      enums.ListingStatusDraft,
		ListingTier: enums.ListingTierNormal,
	}
	listing.Slug = buildSlug(title, listing.ID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		return s.record(ctx, tx, &listing, "", enums.ListingAuditCreated, "listing created", actor)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing created")
	dto := toDTO(listing, true)
	return &dto, nil
}

func buildSlug(title string, id uuid.UUID) string {
	base := slug.Make(title)
	suffix := strings.ReplaceAll(id.String(), "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// Get returns the listing. The owner and admins see every state and the audit
// trail; other callers only see live listings.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	privileged := actor.CanAccess(listing.OwnerID)
	if !privileged && !listing.Status.IsLive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	dto := toDTO(*listing, privileged)
	return &dto, nil
}

// Submit sends a DRAFT listing to review, optionally asking for a higher tier.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, id uuid.UUID, requestedTier string) (*ListingDTO, error) {
	var requested *enums.ListingTier
	if strings.TrimSpace(requestedTier) != "" {
		tier, err := enums.ParseListingTier(requestedTier)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requested tier")
		}
		requested = &tier
	}

	var result models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := s.lockOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusDraft {
			return invalidTransition(listing.Status, enums.ListingStatusPendingReview)
		}
		if requested != nil && requested.Rank() < listing.ListingTier.Rank() {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested tier is below the current tier")
		}

		from := listing.Status
		if err := repo.Update(ctx, listing.ID, map[string]any{
			"status":         enums.ListingStatusPendingReview,
			"requested_tier": requested,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit listing")
		}
		listing.Status = enums.ListingStatusPendingReview
		listing.RequestedTier = requested

		message := "submitted for review"
		if requested != nil {
			message = fmt.Sprintf("submitted for review as %s", *requested)
		}
		if err := s.record(ctx, tx, listing, from, enums.ListingAuditSubmitted, message, actor); err != nil {
			return err
		}
		result = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(result, false)
	return &dto, nil
}

// UpdatePrice changes the asking price and records the change in the price
// history. Setting the current price again is a no-op.
func (s *Service) UpdatePrice(ctx context.Context, actor auth.Actor, id uuid.UUID, price int64) (*ListingDTO, error) {
	if price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}

	var result models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := s.lockOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		switch listing.Status {
		case enums.ListingStatusRejected, enums.ListingStatusExpired, enums.ListingStatusArchived:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("listing is %s and cannot be repriced", listing.Status))
		}
		if listing.Price == price {
			result = *listing
			return nil
		}

		if err := repo.CreatePriceHistory(ctx, &models.ListingPriceHistory{
			ListingID: listing.ID,
			OldPrice:  listing.Price,
			NewPrice:  price,
			ChangedBy: actor.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record price history")
		}
		if err := repo.Update(ctx, listing.ID, map[string]any{"price": price}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price")
		}
		if err := repo.AppendAudit(ctx, &models.ListingAuditEntry{
			ListingID: listing.ID,
			ActorID:   actor.IDPtr(),
			Type:      enums.ListingAuditPriceChanged,
			Message:   fmt.Sprintf("price changed from %d to %d", listing.Price, price),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
		}
		listing.Price = price
		result = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(result, false)
	return &dto, nil
}

// PriceHistory lists the price changes of a listing the actor can manage.
func (s *Service) PriceHistory(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]models.ListingPriceHistory, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(listing.OwnerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	rows, err := s.repo.ListPriceHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price history")
	}
	return rows, nil
}

func (s *Service) lockOwned(ctx context.Context, repo Repository, actor auth.Actor, id uuid.UUID) (*models.Listing, error) {
	listing, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(listing.OwnerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing, nil
}

// record appends the audit entry for a status change and queues the matching
// outbox event in tx. listing must already carry the new status.
func (s *Service) record(ctx context.Context, tx *gorm.DB, listing *models.Listing, from enums.ListingStatus, auditType enums.ListingAuditType, message string, actor auth.Actor) error {
	return RecordTransition(ctx, tx, s.repo, s.outbox, Transition{
		Listing:   listing,
		From:      from,
		AuditType: auditType,
		Message:   message,
		Actor:     actor,
		At:        s.now().UTC(),
	})
}

// Transition describes one listing status change for RecordTransition.
type Transition struct {
	Listing   *models.Listing
	From      enums.ListingStatus
	AuditType enums.ListingAuditType
	Message   string
	Actor     auth.Actor
	At        time.Time
}

// RecordTransition writes the audit entry and the listing_status_changed
// outbox event for a status change already applied to t.Listing.
func RecordTransition(ctx context.Context, tx *gorm.DB, repo Repository, emitter outbox.Emitter, t Transition) error {
	if err := repo.WithTx(tx).AppendAudit(ctx, &models.ListingAuditEntry{
		ListingID: t.Listing.ID,
		ActorID:   t.Actor.IDPtr(),
		Type:      t.AuditType,
		Message:   t.Message,
		CreatedAt: t.At,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
	}
	return emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventListingStatusChanged,
		AggregateType: enums.AggregateListing,
		AggregateID:   t.Listing.ID,
		Actor:         t.Actor.Ref(),
		OccurredAt:    t.At,
		Data: payloads.ListingStatusChangedEvent{
			ListingID:  t.Listing.ID,
			OwnerID:    t.Listing.OwnerID,
			From:       t.From,
			To:         t.Listing.Status,
			Tier:       t.Listing.ListingTier,
			ExpiresAt:  t.Listing.ExpiresAt,
			OccurredAt: t.At,
		},
	})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
}

func invalidTransition(from, to enums.ListingStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("listing cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}
