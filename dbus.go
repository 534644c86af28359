package secretservice

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// D-Bus names and paths of the Secret Service.
const (
	busName     = "org.freedesktop.secrets"
	servicePath = dbus.ObjectPath("/org/freedesktop/secrets")

	serviceIface    = "org.freedesktop.Secret.Service"
	collectionIface = "org.freedesktop.Secret.Collection"
	itemIface       = "org.freedesktop.Secret.Item"
	promptIface     = "org.freedesktop.Secret.Prompt"

	// sessionAlgorithm is the session negotiation algorithm.
	// Secrets travel in the clear over the session bus;
	// the bus itself is private to the user session.
	sessionAlgorithm = "plain"

	defaultAlias = "default"
)

// noObject is the object path daemons use to mean "none".
const noObject = dbus.ObjectPath("/")

// wireSecret is the Secret struct of the wire protocol, type (oayays).
type wireSecret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// dbusConn is the [Daemon] for the real Secret Service daemon
// on the session bus.
type dbusConn struct {
	bus     *dbus.Conn
	service dbus.BusObject
	session dbus.ObjectPath
}

var _ Daemon = (*dbusConn)(nil)

// connectSessionBus opens a private connection to the session bus
// and negotiates a plain session with the Secret Service.
func connectSessionBus() (*dbusConn, error) {
	bus, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	if err := bus.Auth(nil); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("authenticate to session bus: %w", err)
	}
	if err := bus.Hello(); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("register on session bus: %w", err)
	}

	service := bus.Object(busName, servicePath)

	var (
		output  dbus.Variant
		session dbus.ObjectPath
	)
	err = service.Call(serviceIface+".OpenSession", 0,
		sessionAlgorithm, dbus.MakeVariant("")).Store(&output, &session)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("open secret service session: %w", err)
	}

	return &dbusConn{
		bus:     bus,
		service: service,
		session: session,
	}, nil
}

func (c *dbusConn) Close() error {
	return c.bus.Close()
}

func (c *dbusConn) SearchItems(attrs map[string]string) (unlocked, locked []ItemRef, err error) {
	var unlockedPaths, lockedPaths []dbus.ObjectPath
	err = c.service.Call(serviceIface+".SearchItems", 0, attrs).
		Store(&unlockedPaths, &lockedPaths)
	if err != nil {
		return nil, nil, wrapDBusError(err)
	}
	return itemRefs(unlockedPaths), itemRefs(lockedPaths), nil
}

func (c *dbusConn) Unlock(paths []string) error {
	objects := make([]dbus.ObjectPath, len(paths))
	for i, p := range paths {
		objects[i] = dbus.ObjectPath(p)
	}

	var (
		unlocked []dbus.ObjectPath
		prompt   dbus.ObjectPath
	)
	err := c.service.Call(serviceIface+".Unlock", 0, objects).
		Store(&unlocked, &prompt)
	if err != nil {
		return wrapDBusError(err)
	}

	// Locked objects that need user approval come back as a prompt.
	if prompt != noObject {
		if _, err := c.completePrompt(prompt); err != nil {
			return err
		}
	}
	return nil
}

func (c *dbusConn) DefaultCollection() (CollectionRef, error) {
	var path dbus.ObjectPath
	err := c.service.Call(serviceIface+".ReadAlias", 0, defaultAlias).Store(&path)
	if err != nil {
		return "", wrapDBusError(err)
	}
	if path == noObject {
		// The daemon has no default collection yet (seen on fresh
		// setups and WSL). Create one under the default alias.
		return c.createCollection("Default Keyring", defaultAlias)
	}
	return CollectionRef(path), nil
}

func (c *dbusConn) Collections() ([]CollectionRef, error) {
	prop, err := c.service.GetProperty(serviceIface + ".Collections")
	if err != nil {
		return nil, wrapDBusError(err)
	}
	paths, ok := prop.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T for collection list", prop.Value())
	}

	refs := make([]CollectionRef, len(paths))
	for i, p := range paths {
		refs[i] = CollectionRef(p)
	}
	return refs, nil
}

func (c *dbusConn) CollectionLabel(ref CollectionRef) (string, error) {
	return c.stringProperty(dbus.ObjectPath(ref), collectionIface+".Label")
}

func (c *dbusConn) CollectionLocked(ref CollectionRef) (bool, error) {
	prop, err := c.object(string(ref)).GetProperty(collectionIface + ".Locked")
	if err != nil {
		return false, wrapDBusError(err)
	}
	locked, ok := prop.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected type %T for lock state", prop.Value())
	}
	return locked, nil
}

func (c *dbusConn) CreateCollection(label string) (CollectionRef, error) {
	return c.createCollection(label, "")
}

func (c *dbusConn) createCollection(label, alias string) (CollectionRef, error) {
	props := map[string]dbus.Variant{
		collectionIface + ".Label": dbus.MakeVariant(label),
	}

	var collection, prompt dbus.ObjectPath
	err := c.service.Call(serviceIface+".CreateCollection", 0, props, alias).
		Store(&collection, &prompt)
	if err != nil {
		return "", wrapDBusError(err)
	}

	if collection == noObject {
		result, err := c.completePrompt(prompt)
		if err != nil {
			return "", err
		}
		path, ok := result.Value().(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("unexpected type %T for created collection", result.Value())
		}
		collection = path
	}
	return CollectionRef(collection), nil
}

func (c *dbusConn) DeleteCollection(ref CollectionRef) error {
	return c.deleteObject(dbus.ObjectPath(ref), collectionIface+".Delete")
}

func (c *dbusConn) CreateItem(
	coll CollectionRef,
	label string,
	attrs map[string]string,
	secret []byte,
	contentType string,
	replace bool,
) (ItemRef, error) {
	props := map[string]dbus.Variant{
		itemIface + ".Label":      dbus.MakeVariant(label),
		itemIface + ".Attributes": dbus.MakeVariant(attrs),
	}
	wire := wireSecret{
		Session:     c.session,
		Value:       secret,
		ContentType: contentType,
	}

	var item, prompt dbus.ObjectPath
	err := c.object(string(coll)).Call(collectionIface+".CreateItem", 0, props, wire, replace).
		Store(&item, &prompt)
	if err != nil {
		return "", wrapDBusError(err)
	}

	if item == noObject {
		result, err := c.completePrompt(prompt)
		if err != nil {
			return "", err
		}
		path, ok := result.Value().(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("unexpected type %T for created item", result.Value())
		}
		item = path
	}
	return ItemRef(item), nil
}

func (c *dbusConn) ItemLocked(ref ItemRef) (bool, error) {
	prop, err := c.object(string(ref)).GetProperty(itemIface + ".Locked")
	if err != nil {
		return false, wrapDBusError(err)
	}
	locked, ok := prop.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected type %T for lock state", prop.Value())
	}
	return locked, nil
}

func (c *dbusConn) GetSecret(ref ItemRef) ([]byte, error) {
	var wire wireSecret
	err := c.object(string(ref)).Call(itemIface+".GetSecret", 0, c.session).Store(&wire)
	if err != nil {
		return nil, wrapDBusError(err)
	}
	return wire.Value, nil
}

func (c *dbusConn) SetSecret(ref ItemRef, secret []byte, contentType string) error {
	wire := wireSecret{
		Session:     c.session,
		Value:       secret,
		ContentType: contentType,
	}
	return wrapDBusError(c.object(string(ref)).Call(itemIface+".SetSecret", 0, wire).Err)
}

func (c *dbusConn) GetAttributes(ref ItemRef) (map[string]string, error) {
	prop, err := c.object(string(ref)).GetProperty(itemIface + ".Attributes")
	if err != nil {
		return nil, wrapDBusError(err)
	}
	attrs, ok := prop.Value().(map[string]string)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T for attributes", prop.Value())
	}
	return attrs, nil
}

func (c *dbusConn) SetAttributes(ref ItemRef, attrs map[string]string) error {
	err := c.object(string(ref)).SetProperty(itemIface+".Attributes", dbus.MakeVariant(attrs))
	return wrapDBusError(err)
}

func (c *dbusConn) GetLabel(ref ItemRef) (string, error) {
	return c.stringProperty(dbus.ObjectPath(ref), itemIface+".Label")
}

func (c *dbusConn) SetLabel(ref ItemRef, label string) error {
	err := c.object(string(ref)).SetProperty(itemIface+".Label", dbus.MakeVariant(label))
	return wrapDBusError(err)
}

func (c *dbusConn) DeleteItem(ref ItemRef) error {
	return c.deleteObject(dbus.ObjectPath(ref), itemIface+".Delete")
}

// deleteObject calls the given Delete method on an item or collection,
// completing the confirmation prompt if the daemon requests one.
func (c *dbusConn) deleteObject(path dbus.ObjectPath, method string) error {
	var prompt dbus.ObjectPath
	err := c.bus.Object(busName, path).Call(method, 0).Store(&prompt)
	if err != nil {
		return wrapDBusError(err)
	}
	if prompt != noObject {
		if _, err := c.completePrompt(prompt); err != nil {
			return err
		}
	}
	return nil
}

// completePrompt executes a prompt object and blocks until the user
// completes or dismisses it, returning the prompt's result.
func (c *dbusConn) completePrompt(path dbus.ObjectPath) (dbus.Variant, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(promptIface),
	}
	if err := c.bus.AddMatchSignal(match...); err != nil {
		return dbus.Variant{}, fmt.Errorf("subscribe to prompt: %w", err)
	}
	defer func() {
		_ = c.bus.RemoveMatchSignal(match...)
	}()

	signals := make(chan *dbus.Signal, 1)
	c.bus.Signal(signals)
	defer c.bus.RemoveSignal(signals)

	err := c.bus.Object(busName, path).Call(promptIface+".Prompt", 0, "").Err
	if err != nil {
		return dbus.Variant{}, wrapDBusError(err)
	}

	for sig := range signals {
		if sig.Path != path || sig.Name != promptIface+".Completed" {
			continue
		}
		if len(sig.Body) != 2 {
			return dbus.Variant{}, fmt.Errorf("malformed prompt completion: %v", sig.Body)
		}

		if dismissed, ok := sig.Body[0].(bool); !ok || dismissed {
			return dbus.Variant{}, errors.New("prompt dismissed")
		}
		result, ok := sig.Body[1].(dbus.Variant)
		if !ok {
			return dbus.Variant{}, fmt.Errorf("unexpected type %T for prompt result", sig.Body[1])
		}
		return result, nil
	}
	return dbus.Variant{}, errors.New("lost connection while waiting for prompt")
}

func (c *dbusConn) object(path string) dbus.BusObject {
	return c.bus.Object(busName, dbus.ObjectPath(path))
}

func (c *dbusConn) stringProperty(path dbus.ObjectPath, name string) (string, error) {
	prop, err := c.bus.Object(busName, path).GetProperty(name)
	if err != nil {
		return "", wrapDBusError(err)
	}
	s, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T for %s", prop.Value(), name)
	}
	return s, nil
}

func itemRefs(paths []dbus.ObjectPath) []ItemRef {
	refs := make([]ItemRef, len(paths))
	for i, p := range paths {
		refs[i] = ItemRef(p)
	}
	return refs
}

// wrapDBusError translates daemon-side "no such object" failures into
// [ErrNotFound] so stale refs surface as ordinary not-found errors.
func wrapDBusError(err error) error {
	if err == nil {
		return nil
	}

	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch dbusErr.Name {
		case "org.freedesktop.Secret.Error.NoSuchObject",
			"org.freedesktop.DBus.Error.UnknownObject",
			"org.freedesktop.DBus.Error.UnknownMethod":
			return fmt.Errorf("%v: %w", err, ErrNotFound)
		}
	}
	return err
}
