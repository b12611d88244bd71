package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "apeguard/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for _, e := range []audit.Event{
		{Target: "protocols", Key: "AAVE"},
		{Target: "executors", Key: "0x01"},
		{Target: "protocols", Key: "UniSwap"},
	} {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.ListByTarget(ctx, "protocols", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "UniSwap", got[0].Key)
	assert.Equal(t, "AAVE", got[1].Key)

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "UniSwap", recent[0].Key)
	assert.Equal(t, "0x01", recent[1].Key)

	s.Clear()
	recent, err = s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
