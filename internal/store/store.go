package store

// Slot names for the persisted state layout. Each slot holds a JSON-encoded
// value: a sequence of users, at most one session, and the full (all-users)
// ticket collection.
const (
	SlotUsers   = "ticketapp_users"
	SlotSession = "ticketapp_session"
	SlotTickets = "ticketapp_tickets"
)

// Store is a synchronous, string-keyed, string-valued storage medium. All
// durable state lives in named slots; callers serialize whole collections
// into a slot and rewrite it on every mutation.
type Store interface {
	// Get returns the value stored under key. ok is false when the slot
	// is absent.
	Get(key string) (value string, ok bool, err error)
	// Set writes value under key, replacing any prior value.
	Set(key, value string) error
	// Delete removes the slot. Deleting an absent slot is a no-op.
	Delete(key string) error
	Close() error
}
