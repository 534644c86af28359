package secretservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/secretservice"
	"go.abhg.dev/secretservice/secretservicetest"
)

func newTestStore(t *testing.T) (*secretservice.Store, *secretservicetest.Daemon) {
	t.Helper()

	daemon := secretservicetest.New()
	store, err := secretservice.NewStore(&secretservice.StoreOptions{
		Log:    testLogger(t),
		Daemon: daemon,
	})
	require.NoError(t, err)
	return store, daemon
}

func TestStoreEntryValidation(t *testing.T) {
	store, _ := newTestStore(t)

	t.Run("EmptyService", func(t *testing.T) {
		_, err := store.Entry("", "alice", nil)
		require.Error(t, err)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		_, err := store.Entry("myapp", "", nil)
		require.Error(t, err)
	})

	t.Run("ReservedAttribute", func(t *testing.T) {
		for _, key := range []string{"service", "username", "target"} {
			_, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
				Attributes: map[string]string{key: "x"},
			})
			require.Error(t, err, "key %q must be rejected", key)
		}
	})
}

func TestCredentialLifecycle(t *testing.T) {
	store, daemon := newTestStore(t)

	cred, err := store.Entry("myapp", "alice", nil)
	require.NoError(t, err)

	t.Run("GetMissing", func(t *testing.T) {
		_, err := cred.GetSecret()
		require.ErrorIs(t, err, secretservice.ErrNotFound)
	})

	require.NoError(t, cred.SetSecret([]byte("hunter2")))

	t.Run("Get", func(t *testing.T) {
		secret, err := cred.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("hunter2"), secret)
	})

	t.Run("SynthesizedLabel", func(t *testing.T) {
		label, err := cred.Label()
		require.NoError(t, err)
		assert.Equal(t, "keyring:alice@myapp", label)
	})

	t.Run("NoTargetAttribute", func(t *testing.T) {
		// Inspect the raw item: no target was specified, so no
		// target key may be stored, not even an empty one.
		unlocked, locked, err := daemon.SearchItems(map[string]string{
			"service": "myapp", "username": "alice",
		})
		require.NoError(t, err)
		require.Empty(t, locked)
		require.Len(t, unlocked, 1)

		attrs, err := daemon.GetAttributes(unlocked[0])
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"service": "myapp", "username": "alice",
		}, attrs)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cred.SetSecret([]byte("new")))
		assert.Equal(t, 1, daemon.ItemCount(),
			"setting again must not create a second item")

		secret, err := cred.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), secret)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cred.Delete())

		_, err := cred.GetSecret()
		require.ErrorIs(t, err, secretservice.ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		require.ErrorIs(t, cred.Delete(), secretservice.ErrNotFound)
	})

	t.Run("Recreate", func(t *testing.T) {
		require.NoError(t, cred.SetSecret([]byte("again")))

		secret, err := cred.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("again"), secret)
	})
}

func TestCredentialTarget(t *testing.T) {
	store, daemon := newTestStore(t)

	work, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
		Target: "work",
	})
	require.NoError(t, err)
	require.NoError(t, work.SetSecret([]byte("work-secret")))

	plain, err := store.Entry("myapp", "alice", nil)
	require.NoError(t, err)

	t.Run("StoredInTargetCollection", func(t *testing.T) {
		assert.Contains(t, daemon.CollectionLabels(), "work")
	})

	t.Run("SameTargetMatches", func(t *testing.T) {
		secret, err := work.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("work-secret"), secret)
	})

	t.Run("DifferentTargetMisses", func(t *testing.T) {
		other, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
			Target: "personal",
		})
		require.NoError(t, err)

		_, err = other.GetSecret()
		require.ErrorIs(t, err, secretservice.ErrNotFound)
	})

	t.Run("UntargetedPredicateMatches", func(t *testing.T) {
		// A predicate without target matches the targeted item too.
		secret, err := plain.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("work-secret"), secret)
	})

	t.Run("Ambiguous", func(t *testing.T) {
		// A second item sharing service and username makes the
		// untargeted credential ambiguous; the targeted one
		// still resolves.
		personal, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
			Target: "personal",
		})
		require.NoError(t, err)
		require.NoError(t, personal.SetSecret([]byte("personal-secret")))

		_, err = plain.GetSecret()
		var ambiguous *secretservice.AmbiguousError
		require.ErrorAs(t, err, &ambiguous)
		assert.Len(t, ambiguous.Refs, 2)

		secret, err := work.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("work-secret"), secret)
	})
}

func TestCredentialCustomLabel(t *testing.T) {
	store, _ := newTestStore(t)

	cred, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
		Label: "My App login",
	})
	require.NoError(t, err)
	require.NoError(t, cred.SetSecret([]byte("x")))

	label, err := cred.Label()
	require.NoError(t, err)
	assert.Equal(t, "My App login", label)

	require.NoError(t, cred.SetLabel("renamed"))

	label, err = cred.Label()
	require.NoError(t, err)
	assert.Equal(t, "renamed", label)
}

func TestCredentialAttributes(t *testing.T) {
	store, daemon := newTestStore(t)

	cred, err := store.Entry("myapp", "alice", &secretservice.EntryOptions{
		Attributes: map[string]string{"application": "secretsvc"},
	})
	require.NoError(t, err)
	require.NoError(t, cred.SetSecret([]byte("x")))

	t.Run("ExcludesReserved", func(t *testing.T) {
		attrs, err := cred.Attributes()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"application": "secretsvc"}, attrs)
	})

	t.Run("RejectsReservedUpdate", func(t *testing.T) {
		for _, key := range []string{"service", "username", "target"} {
			err := cred.UpdateAttributes(map[string]string{key: "x"})
			require.Error(t, err, "key %q must be rejected", key)
		}
	})

	t.Run("MergePreservesThirdParty", func(t *testing.T) {
		// A third-party application sets its own attribute
		// directly on the item.
		unlocked, _, err := daemon.SearchItems(map[string]string{
			"service": "myapp", "username": "alice",
		})
		require.NoError(t, err)
		require.Len(t, unlocked, 1)

		attrs, err := daemon.GetAttributes(unlocked[0])
		require.NoError(t, err)
		attrs["third-party"] = "yes"
		require.NoError(t, daemon.SetAttributes(unlocked[0], attrs))

		require.NoError(t, cred.UpdateAttributes(map[string]string{
			"application": "updated",
		}))

		got, err := cred.Attributes()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"application": "updated",
			"third-party": "yes",
		}, got)
	})

	t.Run("IdentityPreservedAcrossUpdate", func(t *testing.T) {
		secret, err := cred.GetSecret()
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), secret,
			"the item must still be findable by its identity")
	})
}

func TestCredentialLockedItem(t *testing.T) {
	store, daemon := newTestStore(t)

	cred, err := store.Entry("myapp", "alice", nil)
	require.NoError(t, err)
	require.NoError(t, cred.SetSecret([]byte("hunter2")))

	unlocked, _, err := daemon.SearchItems(map[string]string{
		"service": "myapp", "username": "alice",
	})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	daemon.Lock(string(unlocked[0]))

	secret, err := cred.GetSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret,
		"retrieval must transparently unlock the item")
}
