package service

import (
	"context"
	"log"

	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/port"
)

// Sweeper applies storage rent to stale listings and evicts the unpayable
// ones. Listings are processed independently; one failure never stops the
// sweep.
type Sweeper struct {
	store     port.ListingStore
	fees      *FeeModel
	economy   port.Economy
	scheduler port.SyncScheduler
}

func NewSweeper(store port.ListingStore, fees *FeeModel, economy port.Economy, scheduler port.SyncScheduler) *Sweeper {
	return &Sweeper{store: store, fees: fees, economy: economy, scheduler: scheduler}
}

// Sweep charges storage rent on every listing not touched since lastRun.
// A lastRun at or past now is a clock-skew artifact and does nothing.
func (s *Sweeper) Sweep(ctx context.Context, lastRun, now int64) {
	if lastRun >= now {
		return
	}
	listings, err := s.store.ListNeedingUpdate(ctx, lastRun)
	if err != nil {
		log.Printf("sweep: failed to load stale listings: %v", err)
		return
	}
	for _, listing := range listings {
		s.sweepOne(ctx, listing, now)
	}
}

func (s *Sweeper) sweepOne(ctx context.Context, listing domain.Listing, now int64) {
	cfg := s.fees.ConfigFor(ctx, listing.Market)

	keep := true
	if err := s.scheduler.Run(ctx, func() error {
		fee, due := s.fees.StorageFee(cfg, listing, now)
		if !due {
			return nil
		}
		balance := s.economy.Balance(listing.Owner)
		if s.economy.Withdraw(listing.Owner, fee) {
			if !s.economy.DepositVault(fee) {
				log.Printf("sweep: storage fee %.2f from %s not banked in vault (listing %d)", fee, listing.Owner, listing.ItemID)
			}
			log.Printf("sweep: %s paid %.2f storage fee for listing %d (market %s)", listing.Owner, fee, listing.ItemID, listing.Market)
			return nil
		}
		// The withdrawal report is ambiguous; trust the balance we read.
		log.Printf("sweep: %s could not pay %.2f storage fee for listing %d (market %s)", listing.Owner, fee, listing.ItemID, listing.Market)
		keep = balance >= fee
		return nil
	}); err != nil {
		log.Printf("sweep: fee task for listing %d failed: %v", listing.ItemID, err)
		keep = false
	}

	if keep {
		rows, err := s.store.TouchUpdatedAt(ctx, listing.ItemID, now)
		if err != nil || rows <= 0 {
			log.Printf("sweep: could not advance listing %d (rows %d): %v", listing.ItemID, rows, err)
		}
		return
	}
	rows, err := s.store.Delete(ctx, listing.ItemID)
	if err != nil || rows <= 0 {
		log.Printf("sweep: could not remove listing %d (rows %d): %v", listing.ItemID, rows, err)
		return
	}
	log.Printf("sweep: listing %d removed from market %s", listing.ItemID, listing.Market)
}
