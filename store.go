package secretservice

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// Reserved attribute keys, controlled exclusively by the store.
const (
	attrService  = "service"
	attrUsername = "username"
	attrTarget   = "target"
)

// Store is a credential store backed by the Secret Service.
//
// It holds a single connection to the daemon for its lifetime;
// all credentials built from it share that connection.
type Store struct {
	log *slog.Logger
	svc *Service
}

// StoreOptions configures a [Store].
type StoreOptions struct {
	// Log is the logger used by the store.
	// If unset, logging is disabled.
	Log *slog.Logger // optional

	// Daemon overrides the connection to the Secret Service.
	// If unset, the store connects to org.freedesktop.secrets
	// on the session bus.
	//
	// This is primarily for testing.
	Daemon Daemon // optional
}

// NewStore connects to the Secret Service and returns a store for it.
func NewStore(opts *StoreOptions) (*Store, error) {
	opts = cmp.Or(opts, &StoreOptions{})
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	conn := opts.Daemon
	if conn == nil {
		var err error
		conn, err = connectSessionBus()
		if err != nil {
			return nil, platformFailure(err)
		}
	}

	return &Store{
		log: log,
		svc: NewService(conn, log),
	}, nil
}

// Close releases the connection to the Secret Service.
// The store and its credentials must not be used afterwards.
func (s *Store) Close() error {
	return s.svc.close()
}

// EntryOptions holds the optional modifiers for [Store.Entry].
type EntryOptions struct {
	// Target narrows the entry's identity beyond service and
	// username. New items for the entry are created in a collection
	// labeled Target instead of the default collection, and searches
	// for the entry match on it.
	Target string // optional

	// Label is the human-facing label assigned to newly created
	// items. If unset, it defaults to "keyring:{username}@{service}".
	Label string // optional

	// Attributes are additional attributes stored on newly created
	// items. The reserved keys (service, username, target) are not
	// allowed here.
	Attributes map[string]string // optional
}

// Entry builds a credential for the given service and username,
// both of which must be non-empty.
//
// Building a credential performs no daemon calls: the underlying item,
// if any, is located when the credential is first used.
func (s *Store) Entry(service, username string, opts *EntryOptions) (*Credential, error) {
	opts = cmp.Or(opts, &EntryOptions{})
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	if username == "" {
		return nil, errors.New("username must not be empty")
	}
	for key := range opts.Attributes {
		switch key {
		case attrService, attrUsername, attrTarget:
			return nil, fmt.Errorf("attribute %q is reserved", key)
		}
	}

	label := opts.Label
	if label == "" {
		label = fmt.Sprintf("keyring:%s@%s", username, service)
	}

	return &Credential{
		svc:      s.svc,
		service:  service,
		username: username,
		target:   opts.Target,
		label:    label,
		extra:    maps.Clone(opts.Attributes),
	}, nil
}

// DeleteCollection deletes the named collection and all its items.
// Deleting the default collection is not supported.
func (s *Store) DeleteCollection(name string) error {
	return s.svc.DeleteCollection(name)
}
