package secretservice

import (
	"fmt"
	"maps"
)

// Credential identifies a single logical credential by service,
// username, and optional target. It is built with [Store.Entry] and
// shares its store's connection to the daemon.
//
// A credential holds no reference to a stored item between calls:
// every operation searches for the matching item anew, so a credential
// stays valid across item deletion and re-creation.
type Credential struct {
	svc *Service

	service  string
	username string
	target   string // empty if unset
	label    string

	// extra are caller-supplied attributes stored on newly created
	// items alongside the reserved ones.
	extra map[string]string
}

// Service returns the service this credential identifies.
func (c *Credential) Service() string { return c.service }

// Username returns the username this credential identifies.
func (c *Credential) Username() string { return c.username }

// Target returns the credential's target modifier,
// or an empty string if none was specified.
func (c *Credential) Target() string { return c.target }

// searchAttributes is the attribute predicate identifying this
// credential's item: service and username, plus target if one was
// specified. An absent target is omitted entirely, not stored empty.
func (c *Credential) searchAttributes() map[string]string {
	attrs := map[string]string{
		attrService:  c.service,
		attrUsername: c.username,
	}
	if c.target != "" {
		attrs[attrTarget] = c.target
	}
	return attrs
}

// createAttributes is the full attribute mapping for a newly created
// item: the caller's extra attributes plus the reserved ones.
// Reserved keys are written last, so the caller cannot override them.
func (c *Credential) createAttributes() map[string]string {
	attrs := make(map[string]string, len(c.extra)+3)
	maps.Copy(attrs, c.extra)
	maps.Copy(attrs, c.searchAttributes())
	return attrs
}

// findItem locates the single item matching this credential.
// It fails with [ErrNotFound] if there is none and with
// [AmbiguousError] if there is more than one.
func (c *Credential) findItem() (ItemRef, error) {
	refs, err := c.svc.FindMatchingItems(c.searchAttributes())
	if err != nil {
		return "", err
	}
	switch len(refs) {
	case 0:
		return "", fmt.Errorf("%s: %w", c.description(), ErrNotFound)
	case 1:
		return refs[0], nil
	default:
		return "", &AmbiguousError{Refs: refs}
	}
}

// SetSecret stores secret for this credential. If no matching item
// exists, one is created in the credential's target collection (the
// default collection if no target was specified); if exactly one
// exists, its secret is replaced.
func (c *Credential) SetSecret(secret []byte) error {
	refs, err := c.svc.FindMatchingItems(c.searchAttributes())
	if err != nil {
		return err
	}
	switch len(refs) {
	case 0:
		collection := c.target
		if collection == "" {
			collection = defaultCollectionName
		}
		return c.svc.CreateItem(collection, c.label, c.createAttributes(), secret)
	case 1:
		return c.svc.SetSecret(refs[0], secret)
	default:
		return &AmbiguousError{Refs: refs}
	}
}

// GetSecret retrieves the secret stored for this credential,
// unlocking the underlying item if necessary.
func (c *Credential) GetSecret() ([]byte, error) {
	ref, err := c.findItem()
	if err != nil {
		return nil, err
	}
	if err := c.svc.EnsureUnlocked(ref); err != nil {
		return nil, err
	}
	return c.svc.GetSecret(ref)
}

// Delete permanently deletes the item stored for this credential.
// The credential itself remains usable: a subsequent SetSecret
// creates a fresh item.
func (c *Credential) Delete() error {
	ref, err := c.findItem()
	if err != nil {
		return err
	}
	return c.svc.Delete(ref)
}

// Attributes returns the attributes stored on this credential's item,
// excluding the reserved keys controlled by the store. Attributes set
// by third-party applications are included.
func (c *Credential) Attributes() (map[string]string, error) {
	ref, err := c.findItem()
	if err != nil {
		return nil, err
	}
	attrs, err := c.svc.GetAttributes(ref)
	if err != nil {
		return nil, err
	}
	delete(attrs, attrService)
	delete(attrs, attrUsername)
	delete(attrs, attrTarget)
	return attrs, nil
}

// UpdateAttributes overlays attrs onto the attributes stored on this
// credential's item, preserving keys not mentioned in attrs.
// The reserved keys (service, username, target) are not allowed.
func (c *Credential) UpdateAttributes(attrs map[string]string) error {
	for key := range attrs {
		switch key {
		case attrService, attrUsername, attrTarget:
			return fmt.Errorf("attribute %q is reserved", key)
		}
	}

	ref, err := c.findItem()
	if err != nil {
		return err
	}
	return c.svc.UpdateAttributes(ref, attrs)
}

// Label returns the human-facing label of this credential's item.
func (c *Credential) Label() (string, error) {
	ref, err := c.findItem()
	if err != nil {
		return "", err
	}
	return c.svc.GetLabel(ref)
}

// SetLabel replaces the human-facing label of this credential's item.
func (c *Credential) SetLabel(label string) error {
	ref, err := c.findItem()
	if err != nil {
		return err
	}
	return c.svc.SetLabel(ref, label)
}

func (c *Credential) description() string {
	if c.target != "" {
		return fmt.Sprintf("%s@%s (target %s)", c.username, c.service, c.target)
	}
	return fmt.Sprintf("%s@%s", c.username, c.service)
}
