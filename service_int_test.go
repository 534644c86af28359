package secretservice

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// explodingDaemon panics on search to simulate a bug
// in the middle of a daemon conversation.
type explodingDaemon struct{ Daemon }

func (explodingDaemon) SearchItems(map[string]string) ([]ItemRef, []ItemRef, error) {
	panic("daemon exploded")
}

func TestServicePoisonedLock(t *testing.T) {
	svc := NewService(explodingDaemon{}, nil)

	assert.Panics(t, func() {
		_, _ = svc.FindMatchingItems(nil)
	})

	// Every operation after the panic must fail cleanly
	// instead of reusing the connection.
	_, err := svc.GetAttributes("some/ref")
	require.ErrorIs(t, err, ErrPoisoned)

	require.ErrorIs(t, svc.Delete("some/ref"), ErrPoisoned)
	require.ErrorIs(t, svc.DeleteCollection("work"), ErrPoisoned)
}

// unreadableLabelDaemon exposes two collections,
// one of which refuses to report its label.
type unreadableLabelDaemon struct{ Daemon }

func (unreadableLabelDaemon) Collections() ([]CollectionRef, error) {
	return []CollectionRef{"/bad", "/good"}, nil
}

func (unreadableLabelDaemon) CollectionLabel(ref CollectionRef) (string, error) {
	if ref == "/bad" {
		return "", errors.New("label unavailable")
	}
	return "work", nil
}

func (unreadableLabelDaemon) CollectionLocked(CollectionRef) (bool, error) {
	return false, nil
}

func TestGetCollectionSkipsUnreadableLabels(t *testing.T) {
	coll, err := getCollection(unreadableLabelDaemon{}, "work")
	require.NoError(t, err)
	assert.Equal(t, CollectionRef("/good"), coll)
}

func TestGetCollectionNotFound(t *testing.T) {
	_, err := getCollection(unreadableLabelDaemon{}, "personal")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestErrorWrapping(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, platformFailure(nil))
		assert.NoError(t, decodeError(nil))
	})

	t.Run("NotFoundPassesThrough", func(t *testing.T) {
		err := fmt.Errorf("item /x: %w", ErrNotFound)

		var decodeErr *DecodeError
		assert.False(t, errors.As(decodeError(err), &decodeErr),
			"not-found must not be reported as a decode failure")
		assert.ErrorIs(t, decodeError(err), ErrNotFound)
		assert.ErrorIs(t, platformFailure(err), ErrNotFound)
	})

	t.Run("Platform", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := platformFailure(cause)

		var platformErr *PlatformError
		require.ErrorAs(t, err, &platformErr)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Decode", func(t *testing.T) {
		cause := errors.New("bad variant")
		err := decodeError(cause)

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.ErrorIs(t, err, cause)
	})
}
