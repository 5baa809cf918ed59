package domain

import "context"

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use: every call runs in its own unit of work, never a shared
// long-lived handle.
type Store interface {
	// Authenticate returns the user on a credential match, or
	// ErrBadCredentials.
	Authenticate(ctx context.Context, username, password string) (*User, error)
	// CreateUser persists a new user, hashing the password and assigning
	// the ID and account ID.
	CreateUser(ctx context.Context, u *User, password string) error
	// CreateOrder persists a new order and assigns its durable ID.
	CreateOrder(ctx context.Context, o *Order) error
	// UpdateOrder persists fill/status changes for an existing order.
	UpdateOrder(ctx context.Context, o *Order) error
}

// Matcher is the matching-engine collaborator. An order handed to Match must
// already have a durable ID. Fills surface asynchronously as execution
// reports through the report router.
type Matcher interface {
	Match(ctx context.Context, o *Order) error
}

// MarketBus is the market-data publish/subscribe collaborator, keyed by
// (instrument, entry type).
type MarketBus interface {
	// Subscribe registers h for ticks on the feed and returns a handle
	// used to cancel the registration.
	Subscribe(instrument, entryType string, h TickHandler) uint64
	// Unsubscribe cancels a registration. Unknown handles are a no-op.
	Unsubscribe(id uint64)
}
