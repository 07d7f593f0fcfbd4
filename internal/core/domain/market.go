package domain

import "github.com/google/uuid"

// SystemMarketID identifies the single distinguished marketplace. All other
// market ids belong to per-owner signshop markets.
var SystemMarketID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("market:system-shop"))

// IsSystemMarket reports whether id is the distinguished system market.
func IsSystemMarket(id uuid.UUID) bool {
	return id == SystemMarketID
}

// MarketConfig holds the per-market fee, tax and storage-rent parameters.
type MarketConfig struct {
	Market            uuid.UUID
	ListingFee        float64
	TaxRatePercent    float64
	StorageFeeBase    float64
	StorageFeePercent float64
	StorageFreeDays   int
	SlotLimit         int
}

// TaxRate returns the tax as a fraction of the purchase price.
func (c MarketConfig) TaxRate() float64 {
	return c.TaxRatePercent / 100.0
}

// StorageFeeRate returns the per-day storage rate as a fraction of the price.
func (c MarketConfig) StorageFeeRate() float64 {
	return c.StorageFeePercent / 100.0
}
