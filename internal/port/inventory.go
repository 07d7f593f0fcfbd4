package port

import "github.com/google/uuid"

// Item is an opaque item stack owned by the host engine. The core never
// inspects it beyond the stack size and display name.
type Item interface {
	// Name returns a human-readable name for notifications.
	Name() string

	// Amount returns the stack size.
	Amount() int

	// WithAmount returns a copy of the item with the given stack size.
	WithAmount(n int) Item
}

// Inventory is the item-holding capability supplied by the host engine.
// Calls must happen on the host's synchronous context.
type Inventory interface {
	// HasItem reports whether holder owns at least qty of item.
	HasItem(holder uuid.UUID, item Item, qty int) bool

	// RemoveItem takes qty of item from holder, returns false if it could not.
	RemoveItem(holder uuid.UUID, item Item, qty int) bool

	// GiveOrDrop delivers item to holder; overflow is dropped, never lost.
	GiveOrDrop(holder uuid.UUID, item Item)
}

// ItemCodec converts items to and from the opaque text blob persisted with a
// listing. Implementations must be safe for concurrent use.
type ItemCodec interface {
	Serialize(item Item) (string, error)
	Deserialize(blob string) (Item, error)
	Clone(item Item) Item
}
