package secretservice

import (
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"
)

// defaultCollectionName is the collection name that always refers to
// the daemon's designated default collection, whatever its label.
const defaultCollectionName = "default"

// Content types for secret payloads.
const (
	createContentType = "application/octet-stream"
	setContentType    = "text/plain"
)

// Service mediates all access to the Secret Service daemon.
// It owns the single connection to the daemon and serializes every
// operation through a lock, so the connection is never used by two
// operations concurrently.
//
// Each [Store] holds one Service shared by all its credentials.
type Service struct {
	log *slog.Logger

	mu       sync.Mutex
	poisoned bool
	conn     Daemon
}

// NewService builds a Service on top of the given daemon connection.
// If log is nil, logging is disabled.
func NewService(conn Daemon, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{log: log, conn: conn}
}

// withConn runs f with exclusive access to the daemon connection.
//
// If a previous operation panicked while holding the lock, the
// connection state is unknown and every subsequent operation fails
// with [ErrPoisoned] instead of proceeding.
func (s *Service) withConn(f func(conn Daemon) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return ErrPoisoned
	}

	finished := false
	defer func() {
		if !finished {
			s.poisoned = true
		}
	}()

	err := f(s.conn)
	finished = true
	return err
}

// FindMatchingItems searches all collections of the daemon for items
// whose attributes include every pair in attrs. Matched items that are
// locked are unlocked as a batch before returning; the result lists
// already-unlocked items first, then the newly unlocked ones.
//
// An empty result is not an error.
func (s *Service) FindMatchingItems(attrs map[string]string) ([]ItemRef, error) {
	var results []ItemRef
	err := s.withConn(func(conn Daemon) error {
		unlocked, locked, err := conn.SearchItems(attrs)
		if err != nil {
			return decodeError(err)
		}
		if len(locked) > 0 {
			if err := conn.Unlock(itemPaths(locked)); err != nil {
				return decodeError(err)
			}
		}
		results = make([]ItemRef, 0, len(unlocked)+len(locked))
		results = append(results, unlocked...)
		results = append(results, locked...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateItem creates an item holding secret in the named collection,
// creating the collection first if it does not exist. An existing item
// with identical attributes in that collection is overwritten, not
// duplicated.
func (s *Service) CreateItem(collection, label string, attrs map[string]string, secret []byte) error {
	return s.withConn(func(conn Daemon) error {
		coll, err := getCollection(conn, collection)
		if errors.Is(err, ErrNotFound) {
			s.log.Debug("Creating collection", "name", collection)
			coll, err = createCollection(conn, collection)
		}
		if err != nil {
			return err
		}

		if _, err := conn.CreateItem(coll, label, attrs, secret, createContentType, true); err != nil {
			return platformFailure(err)
		}
		return nil
	})
}

// DeleteCollection deletes the named collection and all its items.
// The default collection cannot be deleted:
// the name "default" is rejected with [NotSupportedError].
func (s *Service) DeleteCollection(collection string) error {
	return s.withConn(func(conn Daemon) error {
		if collection == defaultCollectionName {
			return &NotSupportedError{
				Reason: "cannot delete the default collection",
			}
		}

		coll, err := getCollection(conn, collection)
		if err != nil {
			return err
		}
		s.log.Debug("Deleting collection", "name", collection)
		return decodeError(conn.DeleteCollection(coll))
	})
}

// EnsureUnlocked unlocks the referenced item if it is locked.
// A stale ref fails with [ErrNotFound]: the daemon's batch unlock
// skips unknown paths, so the lock state is read first to verify
// the item still exists.
func (s *Service) EnsureUnlocked(ref ItemRef) error {
	return s.withConn(func(conn Daemon) error {
		locked, err := conn.ItemLocked(ref)
		if err != nil {
			return decodeError(err)
		}
		if !locked {
			return nil
		}
		return decodeError(conn.Unlock([]string{string(ref)}))
	})
}

// GetSecret retrieves the raw secret payload of an existing item.
func (s *Service) GetSecret(ref ItemRef) ([]byte, error) {
	var secret []byte
	err := s.withConn(func(conn Daemon) error {
		var err error
		secret, err = conn.GetSecret(ref)
		return decodeError(err)
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// SetSecret replaces the raw secret payload of an existing item.
func (s *Service) SetSecret(ref ItemRef, secret []byte) error {
	return s.withConn(func(conn Daemon) error {
		return decodeError(conn.SetSecret(ref, secret, setContentType))
	})
}

// GetAttributes returns the full attribute mapping of an existing item,
// including attributes set by third-party applications.
func (s *Service) GetAttributes(ref ItemRef) (map[string]string, error) {
	var attrs map[string]string
	err := s.withConn(func(conn Daemon) error {
		var err error
		attrs, err = conn.GetAttributes(ref)
		return decodeError(err)
	})
	if err != nil {
		return nil, err
	}
	return attrs, nil
}

// UpdateAttributes overlays attrs onto the item's existing attributes:
// values in attrs replace existing values for the same keys, and keys
// absent from attrs are preserved unchanged.
//
// The daemon's attribute write is total, so the merge reads the current
// mapping and writes the combined mapping back in full. A concurrent
// external modification between the read and the write is lost
// (last writer wins).
func (s *Service) UpdateAttributes(ref ItemRef, attrs map[string]string) error {
	return s.withConn(func(conn Daemon) error {
		existing, err := conn.GetAttributes(ref)
		if err != nil {
			return decodeError(err)
		}

		updated := make(map[string]string, len(existing)+len(attrs))
		maps.Copy(updated, existing)
		maps.Copy(updated, attrs)
		return decodeError(conn.SetAttributes(ref, updated))
	})
}

// Delete permanently deletes the referenced item.
func (s *Service) Delete(ref ItemRef) error {
	return s.withConn(func(conn Daemon) error {
		return decodeError(conn.DeleteItem(ref))
	})
}

// GetLabel returns the human-facing label of an existing item.
func (s *Service) GetLabel(ref ItemRef) (string, error) {
	var label string
	err := s.withConn(func(conn Daemon) error {
		var err error
		label, err = conn.GetLabel(ref)
		return decodeError(err)
	})
	return label, err
}

// SetLabel replaces the human-facing label of an existing item.
func (s *Service) SetLabel(ref ItemRef, label string) error {
	return s.withConn(func(conn Daemon) error {
		return decodeError(conn.SetLabel(ref, label))
	})
}

// close releases the daemon connection.
func (s *Service) close() error {
	return s.withConn(func(conn Daemon) error {
		return conn.Close()
	})
}

func itemPaths(refs []ItemRef) []string {
	paths := make([]string, len(refs))
	for i, ref := range refs {
		paths[i] = string(ref)
	}
	return paths
}

// getCollection finds the collection whose label is the given name.
//
// The name "default" is treated specially and names the daemon's
// default collection regardless of that collection's label.
//
// The returned collection is always unlocked.
func getCollection(conn Daemon, name string) (CollectionRef, error) {
	var coll CollectionRef
	if name == defaultCollectionName {
		c, err := conn.DefaultCollection()
		if err != nil {
			return "", decodeError(err)
		}
		coll = c
	} else {
		all, err := conn.Collections()
		if err != nil {
			return "", decodeError(err)
		}

		found := false
		for _, c := range all {
			label, err := conn.CollectionLabel(c)
			if err != nil {
				// Skip collections whose label cannot be read.
				continue
			}
			if label == name {
				coll, found = c, true
				break
			}
		}
		if !found {
			return "", ErrNotFound
		}
	}

	locked, err := conn.CollectionLocked(coll)
	if err != nil {
		return "", decodeError(err)
	}
	if locked {
		if err := conn.Unlock([]string{string(coll)}); err != nil {
			return "", decodeError(err)
		}
	}
	return coll, nil
}

// createCollection creates a collection labeled with the given name,
// relying on the daemon to return the existing collection if one with
// that label already exists.
//
// The name "default", matched case-insensitively, is interpreted as the
// default collection; a second default is never created.
func createCollection(conn Daemon, name string) (CollectionRef, error) {
	if strings.EqualFold(name, defaultCollectionName) {
		c, err := conn.DefaultCollection()
		return c, decodeError(err)
	}
	c, err := conn.CreateCollection(name)
	return c, decodeError(err)
}
