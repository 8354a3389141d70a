package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type ListingExpirationJobParams struct {
	Logger  *logger.Logger
	Sweeper listingSweeper
}

type listingSweeper interface {
	Run(ctx context.Context) (listings.SweepResult, error)
}

// NewListingExpirationJob wraps the listing sweeper as a cron job.
func NewListingExpirationJob(params ListingExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("listing sweeper required")
	}
	return &listingExpirationJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type listingExpirationJob struct {
	logg    *logger.Logger
	sweeper listingSweeper
}

func (j *listingExpirationJob) Name() string { return "listing-expiration" }

func (j *listingExpirationJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("listing expiration sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired":       result.Expired,
		"expiring_soon": result.ExpiringSoon,
	})
	j.logg.Info(logCtx, "listing expiration sweep complete")
	return nil
}
