package domain

import "github.com/google/uuid"

// MaxPrice is the exclusive upper bound for a listing's unit price.
const MaxPrice = float64(1 << 31)

// Listing is one for-sale record: an item stack with quantity, unit price,
// owner and destination market. Timestamps are unix milliseconds.
type Listing struct {
	ItemID      int64
	Payload     string // serialized item blob, opaque to the core
	Amount      int
	Owner       uuid.UUID
	Market      uuid.UUID
	Price       float64
	CreatedAt   int64
	UpdatedAt   int64
	Description string
}
