package secretservice

// ItemRef is an opaque, daemon-assigned locator for a stored item.
// It is obtained from a search or create call, never constructed.
// A ref may become stale if the item is deleted, by this store or by
// another process; operations on a stale ref fail with [ErrNotFound].
type ItemRef string

// CollectionRef is an opaque, daemon-assigned locator for a collection.
// The daemon assigns it independently of the collection's label.
type CollectionRef string

// Daemon is the surface of the Secret Service daemon used by this store.
//
// The default implementation talks to org.freedesktop.secrets on the
// session bus. The secretservicetest package provides an in-memory
// implementation for tests.
//
// Implementations report a missing collection or item by returning an
// error that matches [ErrNotFound] with errors.Is.
type Daemon interface {
	// SearchItems returns the items across all collections whose
	// attributes include every key/value pair in attrs, split by
	// lock state.
	SearchItems(attrs map[string]string) (unlocked, locked []ItemRef, err error)

	// Unlock unlocks the given item or collection paths as a batch.
	Unlock(paths []string) error

	// DefaultCollection returns the daemon's designated default
	// collection, whatever its label.
	DefaultCollection() (CollectionRef, error)

	// Collections enumerates all collections.
	Collections() ([]CollectionRef, error)

	CollectionLabel(ref CollectionRef) (string, error)
	CollectionLocked(ref CollectionRef) (bool, error)

	// CreateCollection creates a collection with the given label.
	// If the daemon already has a collection with that label,
	// it returns the existing collection.
	CreateCollection(label string) (CollectionRef, error)

	// DeleteCollection deletes a collection and all its items.
	DeleteCollection(ref CollectionRef) error

	// CreateItem creates an item in the given collection.
	// If replace is true and an item with identical attributes exists
	// in the collection, that item is overwritten.
	CreateItem(
		coll CollectionRef,
		label string,
		attrs map[string]string,
		secret []byte,
		contentType string,
		replace bool,
	) (ItemRef, error)

	GetSecret(ref ItemRef) ([]byte, error)
	SetSecret(ref ItemRef, secret []byte, contentType string) error

	// ItemLocked reports the item's lock state.
	// A stale ref fails with [ErrNotFound]; the daemon's batch Unlock
	// silently skips unknown paths, so this is the existence check.
	ItemLocked(ref ItemRef) (bool, error)

	// GetAttributes returns the item's full attribute mapping.
	GetAttributes(ref ItemRef) (map[string]string, error)

	// SetAttributes replaces the item's full attribute mapping.
	// This is a total write, not a patch.
	SetAttributes(ref ItemRef, attrs map[string]string) error

	GetLabel(ref ItemRef) (string, error)
	SetLabel(ref ItemRef, label string) error

	DeleteItem(ref ItemRef) error

	// Close releases the connection to the daemon.
	Close() error
}
