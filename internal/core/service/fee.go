package service

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/hmkt/market/internal/cache"
	"github.com/hmkt/market/internal/core/domain"
)

const dayMillis = 24 * 60 * 60 * 1000

// FeeModel resolves per-market fee configuration and computes listing fees,
// tax rates and storage rent. The system market and signshop defaults are
// static; other markets may carry overrides served through the config cache.
type FeeModel struct {
	system   domain.MarketConfig
	signshop domain.MarketConfig
	configs  *cache.Cache[uuid.UUID, domain.MarketConfig] // may be nil
}

func NewFeeModel(system, signshop domain.MarketConfig, configs *cache.Cache[uuid.UUID, domain.MarketConfig]) *FeeModel {
	return &FeeModel{system: system, signshop: signshop, configs: configs}
}

// ConfigFor returns the fee configuration governing a market.
func (f *FeeModel) ConfigFor(ctx context.Context, market uuid.UUID) domain.MarketConfig {
	if domain.IsSystemMarket(market) {
		return f.system
	}
	if f.configs != nil {
		if cfg, ok, err := f.configs.Get(ctx, market); err == nil && ok {
			return cfg
		}
	}
	return f.signshop
}

// ListingFee is the flat charge taken from the seller at offer time.
func (f *FeeModel) ListingFee(ctx context.Context, market uuid.UUID) float64 {
	return f.ConfigFor(ctx, market).ListingFee
}

// TaxRate is the fraction of the purchase price withheld from seller
// proceeds. Tax only applies when buyer and owner differ; that rule lives at
// the call site.
func (f *FeeModel) TaxRate(ctx context.Context, market uuid.UUID) float64 {
	return f.ConfigFor(ctx, market).TaxRate()
}

// SlotLimit is the listing capacity enforced at offer time.
func (f *FeeModel) SlotLimit(ctx context.Context, market uuid.UUID) int {
	return f.ConfigFor(ctx, market).SlotLimit
}

// StorageFee computes the rent due for a listing at time now. It returns
// false when no new billable day has elapsed or the listing is still inside
// the free window; otherwise the fee covers every unpaid billable day.
func (f *FeeModel) StorageFee(cfg domain.MarketConfig, listing domain.Listing, now int64) (float64, bool) {
	elapsedDays := math.Floor(float64(now-listing.CreatedAt) / dayMillis)
	paidDays := math.Floor(float64(listing.UpdatedAt-listing.CreatedAt) / dayMillis)
	if elapsedDays <= paidDays {
		return 0, false
	}
	if float64(now-listing.CreatedAt) < float64(cfg.StorageFreeDays)*dayMillis {
		return 0, false
	}
	billable := elapsedDays - paidDays
	return (cfg.StorageFeeBase + cfg.StorageFeeRate()*listing.Price) * billable, true
}
