package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

// Balance is one tier balance of a user.
type Balance struct {
	Tier     enums.ListingTier `json:"tier"`
	Quantity int               `json:"quantity"`
}

// Ledger credits and debits listing-tier inventory. Credit and Debit run in
// the caller's transaction so they commit or roll back with the business change.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Ledger{repo: repo, now: time.Now}, nil
}

// Credit adds amount units of tier to the user's balance.
func (l *Ledger) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tier enums.ListingTier, amount int) error {
	if err := validate(userID, tier, amount); err != nil {
		return err
	}
	if err := l.repo.WithTx(tx).AddQuantity(ctx, userID, tier, amount, l.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit inventory")
	}
	return nil
}

// Debit removes amount units of tier. The balance row is locked first, a
// missing row or short balance fails with INSUFFICIENT_INVENTORY.
func (l *Ledger) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tier enums.ListingTier, amount int) error {
	if err := validate(userID, tier, amount); err != nil {
		return err
	}
	repo := l.repo.WithTx(tx)

	entry, err := repo.FindForUpdate(ctx, userID, tier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return insufficient(tier, amount, 0)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	if entry.Quantity < amount {
		return insufficient(tier, amount, entry.Quantity)
	}

	affected, err := repo.SubtractQuantity(ctx, entry.ID, amount, l.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit inventory")
	}
	if affected == 0 {
		return insufficient(tier, amount, entry.Quantity)
	}
	return nil
}

// Balances lists every tier balance the user holds.
func (l *Ledger) Balances(ctx context.Context, userID uuid.UUID) ([]Balance, error) {
	entries, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	out := make([]Balance, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Balance{Tier: entry.ItemType, Quantity: entry.Quantity})
	}
	return out, nil
}

func validate(userID uuid.UUID, tier enums.ListingTier, amount int) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !tier.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid listing tier")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

func insufficient(tier enums.ListingTier, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient listing inventory").
		WithDetails(map[string]any{
			"tier":      tier,
			"requested": requested,
			"available": available,
		})
}
