package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/listingz-backend/internal/listings"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

type fakeSweeper struct {
	result listings.SweepResult
	err    error
	runs   int
}

func (f *fakeSweeper) Run(context.Context) (listings.SweepResult, error) {
	f.runs++
	return f.result, f.err
}

func TestListingExpirationJobRunsSweeper(t *testing.T) {
	sweeper := &fakeSweeper{result: listings.SweepResult{Expired: 2, ExpiringSoon: 5}}
	job, err := NewListingExpirationJob(ListingExpirationJobParams{Logger: logger.Nop(), Sweeper: sweeper})
	if err != nil {
		t.Fatalf("NewListingExpirationJob: %v", err)
	}
	if job.Name() != "listing-expiration" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.runs != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.runs)
	}
}

func TestListingExpirationJobPropagatesErrors(t *testing.T) {
	job, err := NewListingExpirationJob(ListingExpirationJobParams{
		Logger:  logger.Nop(),
		Sweeper: &fakeSweeper{err: errors.New("lock timeout")},
	})
	if err != nil {
		t.Fatalf("NewListingExpirationJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
