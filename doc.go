// Package secretservice implements a credential store backed by the
// freedesktop.org Secret Service over D-Bus.
//
// Items in the Secret Service are organized into collections and are
// identified by an arbitrary set of string attributes. New items are
// created in the daemon's default collection, unless a target other than
// "default" is specified for the entry. In that case, the item is created
// in a collection labeled by the target, creating that collection if
// necessary.
//
// # Attributes
//
// This store controls the following item attributes:
//
//   - service (required, from the entry's service)
//   - username (required, from the entry's username)
//   - target (present only when a target was specified for the entry)
//
// When creating a new item, the store also assigns it a label for use in
// Secret Service UIs. If no label was specified for the entry, the label
// defaults to "keyring:{username}@{service}".
//
// Client code may read and write all attributes except the three
// controlled by the store. The item label is accessible with
// [Credential.Label] and [Credential.SetLabel], not through the attribute
// operations.
//
// # Ambiguity
//
// Existing items are always searched for at the service level, across all
// collections. The search matches on service and username, plus target if
// one was specified for the entry; the target attribute distinguishes
// items that share a service and username across collections. Items
// created by third-party applications may carry additional attributes;
// such items still match a search on the same service and username. A
// search that matches more than one item fails with [AmbiguousError].
//
// # Headless usage
//
// The Secret Service requires a session D-Bus and a running provider
// (for example gnome-keyring or KWallet). On headless machines the
// keyring must be started and unlocked out of band before this store can
// reach it; CI setups typically start gnome-keyring-daemon unlocked with
// a known password.
package secretservice
