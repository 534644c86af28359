// Package secretservicetest provides an in-memory Secret Service daemon
// for use in tests.
package secretservicetest

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.abhg.dev/secretservice"
)

// Daemon is an in-memory implementation of [secretservice.Daemon].
//
// A new Daemon holds a single unlocked default collection.
// Use [Daemon.Lock] to lock items or collections,
// and the interface methods to inspect state.
//
// Daemon is safe for concurrent use.
type Daemon struct {
	mu          sync.Mutex
	nextID      int
	collections map[secretservice.CollectionRef]*collection
	items       map[secretservice.ItemRef]*item
	defaultColl secretservice.CollectionRef
}

type collection struct {
	label  string
	locked bool
}

type item struct {
	coll        secretservice.CollectionRef
	label       string
	attrs       map[string]string
	secret      []byte
	contentType string
	locked      bool
}

var _ secretservice.Daemon = (*Daemon)(nil)

// defaultPath is the ref of the built-in default collection.
// Its label intentionally differs from "default":
// the daemon's default collection is found by designation, not label.
const defaultPath = secretservice.CollectionRef("/org/freedesktop/secrets/collection/login")

// New creates a Daemon holding one unlocked default collection
// labeled "Login".
func New() *Daemon {
	return &Daemon{
		collections: map[secretservice.CollectionRef]*collection{
			defaultPath: {label: "Login"},
		},
		items:       make(map[secretservice.ItemRef]*item),
		defaultColl: defaultPath,
	}
}

// Lock marks the given item or collection paths as locked.
// Unknown paths are ignored.
func (d *Daemon) Lock(paths ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range paths {
		if coll, ok := d.collections[secretservice.CollectionRef(p)]; ok {
			coll.locked = true
		}
		if it, ok := d.items[secretservice.ItemRef(p)]; ok {
			it.locked = true
		}
	}
}

// ItemCount reports the number of items across all collections.
func (d *Daemon) ItemCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// CollectionLabels returns the labels of all collections, sorted.
func (d *Daemon) CollectionLabels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	labels := make([]string, 0, len(d.collections))
	for _, coll := range d.collections {
		labels = append(labels, coll.label)
	}
	slices.Sort(labels)
	return labels
}

func (d *Daemon) SearchItems(attrs map[string]string) (unlocked, locked []secretservice.ItemRef, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for ref, it := range d.items {
		if !matches(it.attrs, attrs) {
			continue
		}
		if d.isLocked(it) {
			locked = append(locked, ref)
		} else {
			unlocked = append(unlocked, ref)
		}
	}

	// Deterministic order for tests.
	slices.Sort(unlocked)
	slices.Sort(locked)
	return unlocked, locked, nil
}

// matches reports whether attrs includes every pair in want.
func matches(attrs, want map[string]string) bool {
	for k, v := range want {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// isLocked reports the item's effective lock state.
// An item in a locked collection is locked. Callers must hold d.mu.
func (d *Daemon) isLocked(it *item) bool {
	if it.locked {
		return true
	}
	coll, ok := d.collections[it.coll]
	return ok && coll.locked
}

func (d *Daemon) Unlock(paths []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Unknown paths are skipped, as the real daemon does.
	for _, p := range paths {
		if coll, ok := d.collections[secretservice.CollectionRef(p)]; ok {
			coll.locked = false
			for _, it := range d.items {
				if it.coll == secretservice.CollectionRef(p) {
					it.locked = false
				}
			}
			continue
		}
		if it, ok := d.items[secretservice.ItemRef(p)]; ok {
			it.locked = false
		}
	}
	return nil
}

func (d *Daemon) DefaultCollection() (secretservice.CollectionRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultColl, nil
}

func (d *Daemon) Collections() ([]secretservice.CollectionRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	refs := slices.Collect(maps.Keys(d.collections))
	slices.Sort(refs)
	return refs, nil
}

func (d *Daemon) CollectionLabel(ref secretservice.CollectionRef) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[ref]
	if !ok {
		return "", fmt.Errorf("collection %v: %w", ref, secretservice.ErrNotFound)
	}
	return coll.label, nil
}

func (d *Daemon) CollectionLocked(ref secretservice.CollectionRef) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[ref]
	if !ok {
		return false, fmt.Errorf("collection %v: %w", ref, secretservice.ErrNotFound)
	}
	return coll.locked, nil
}

func (d *Daemon) CreateCollection(label string) (secretservice.CollectionRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for ref, coll := range d.collections {
		if coll.label == label {
			return ref, nil
		}
	}

	d.nextID++
	ref := secretservice.CollectionRef(
		fmt.Sprintf("/org/freedesktop/secrets/collection/c%d", d.nextID))
	d.collections[ref] = &collection{label: label}
	return ref, nil
}

func (d *Daemon) DeleteCollection(ref secretservice.CollectionRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[ref]; !ok {
		return fmt.Errorf("collection %v: %w", ref, secretservice.ErrNotFound)
	}
	delete(d.collections, ref)
	for itemRef, it := range d.items {
		if it.coll == ref {
			delete(d.items, itemRef)
		}
	}
	return nil
}

func (d *Daemon) CreateItem(
	coll secretservice.CollectionRef,
	label string,
	attrs map[string]string,
	secret []byte,
	contentType string,
	replace bool,
) (secretservice.ItemRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[coll]; !ok {
		return "", fmt.Errorf("collection %v: %w", coll, secretservice.ErrNotFound)
	}

	if replace {
		for ref, it := range d.items {
			if it.coll == coll && maps.Equal(it.attrs, attrs) {
				it.label = label
				it.secret = slices.Clone(secret)
				it.contentType = contentType
				return ref, nil
			}
		}
	}

	d.nextID++
	ref := secretservice.ItemRef(fmt.Sprintf("%s/i%d", coll, d.nextID))
	d.items[ref] = &item{
		coll:        coll,
		label:       label,
		attrs:       maps.Clone(attrs),
		secret:      slices.Clone(secret),
		contentType: contentType,
	}
	return ref, nil
}

func (d *Daemon) ItemLocked(ref secretservice.ItemRef) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return false, err
	}
	return d.isLocked(it), nil
}

func (d *Daemon) GetSecret(ref secretservice.ItemRef) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return nil, err
	}
	if d.isLocked(it) {
		return nil, fmt.Errorf("item %v is locked", ref)
	}
	return slices.Clone(it.secret), nil
}

func (d *Daemon) SetSecret(ref secretservice.ItemRef, secret []byte, contentType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return err
	}
	if d.isLocked(it) {
		return fmt.Errorf("item %v is locked", ref)
	}
	it.secret = slices.Clone(secret)
	it.contentType = contentType
	return nil
}

func (d *Daemon) GetAttributes(ref secretservice.ItemRef) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return nil, err
	}
	return maps.Clone(it.attrs), nil
}

func (d *Daemon) SetAttributes(ref secretservice.ItemRef, attrs map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return err
	}
	it.attrs = maps.Clone(attrs)
	return nil
}

func (d *Daemon) GetLabel(ref secretservice.ItemRef) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return "", err
	}
	return it.label, nil
}

func (d *Daemon) SetLabel(ref secretservice.ItemRef, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.item(ref)
	if err != nil {
		return err
	}
	it.label = label
	return nil
}

func (d *Daemon) DeleteItem(ref secretservice.ItemRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.item(ref); err != nil {
		return err
	}
	delete(d.items, ref)
	return nil
}

func (d *Daemon) Close() error { return nil }

// item returns the item for ref. Callers must hold d.mu.
func (d *Daemon) item(ref secretservice.ItemRef) (*item, error) {
	it, ok := d.items[ref]
	if !ok {
		return nil, fmt.Errorf("item %v: %w", ref, secretservice.ErrNotFound)
	}
	return it, nil
}
