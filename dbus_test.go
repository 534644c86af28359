package secretservice

import (
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapDBusError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, wrapDBusError(nil))
	})

	t.Run("NoSuchObject", func(t *testing.T) {
		err := wrapDBusError(dbus.Error{
			Name: "org.freedesktop.Secret.Error.NoSuchObject",
			Body: []any{"no such object"},
		})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UnknownObject", func(t *testing.T) {
		err := wrapDBusError(dbus.Error{
			Name: "org.freedesktop.DBus.Error.UnknownObject",
		})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := wrapDBusError(fmt.Errorf("unlock: %w", dbus.Error{
			Name: "org.freedesktop.DBus.Error.UnknownMethod",
		}))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Other", func(t *testing.T) {
		err := wrapDBusError(dbus.Error{
			Name: "org.freedesktop.DBus.Error.AccessDenied",
		})
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
