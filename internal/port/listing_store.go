package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/hmkt/market/internal/core/domain"
)

// ListingStore persists listing records. All mutations and queries are
// serialized onto a single storage worker; calls from one goroutine execute
// in submission order and each call is individually atomic.
type ListingStore interface {
	// Create inserts a new listing if the capacity subject (per owner on the
	// system market, whole market otherwise) holds fewer than capacity
	// listings. Returns the new id and false when capacity is exceeded.
	Create(ctx context.Context, payload string, qty int, owner, market uuid.UUID, price float64, capacity int) (int64, bool, error)

	// Get returns the listing or nil when absent.
	Get(ctx context.Context, id int64) (*domain.Listing, error)

	// List returns the market's listings ordered by id. Records with
	// non-positive quantity are scheduled for deletion and excluded.
	List(ctx context.Context, market uuid.UUID) ([]domain.Listing, error)

	// DecrementQuantity reduces stock by amount only while the price still
	// matches expectedPrice and enough stock remains. Returns false on any
	// mismatch, without touching the row.
	DecrementQuantity(ctx context.Context, id int64, amount int, expectedPrice float64) (bool, error)

	// Delete removes a listing, returning the number of rows affected.
	Delete(ctx context.Context, id int64) (int64, error)

	// Count returns the number of listings in a market.
	Count(ctx context.Context, market uuid.UUID) (int, error)

	// CountByOwner returns the number of listings one owner has in a market.
	CountByOwner(ctx context.Context, market, owner uuid.UUID) (int, error)

	// ListNeedingUpdate returns listings whose updatedAt is at or before
	// since, ordered by id.
	ListNeedingUpdate(ctx context.Context, since int64) ([]domain.Listing, error)

	// TouchUpdatedAt advances a listing's paid-through marker.
	TouchUpdatedAt(ctx context.Context, id int64, ts int64) (int64, error)
}
