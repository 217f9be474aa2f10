package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventledger/internal/core"
	"eventledger/internal/remote"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx)
	require.ErrorIs(t, err, remote.ErrNotFound)

	l := core.EmptyLedger()
	l.Events = append(l.Events, core.Event{ID: "event-1", Name: "Trip"})
	ts, err := s.Put(ctx, l)
	require.NoError(t, err)

	// later changes to the caller's ledger must not leak into the store
	l.Events[0].Name = "changed"

	doc, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Trip", doc.Ledger.Events[0].Name)
	assert.True(t, doc.LastModified.Equal(ts))
	assert.Equal(t, 1, s.Puts())

	require.NoError(t, s.Delete(ctx))
	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestMemoryStorePutHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	_, err := s.Put(ctx, core.EmptyLedger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Puts())
}
