package repository

import (
	"context"
	"testing"

	"broadcaster/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	_, _, err := NewAccountRepository(testDB.DB).Upsert(ctx, testutil.CreateTestProfile(42, "frank"))
	require.NoError(t, err)

	repo := NewBroadcastRepository(testDB.DB)

	first := testutil.CreateTestBroadcast(42, 3, 1)
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := testutil.CreateTestBroadcast(42, 0, 5)
	require.NoError(t, repo.Create(ctx, second))

	broadcasts, err := repo.ListByUser(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, broadcasts, 2)
	assert.Equal(t, second.ID, broadcasts[0].ID)
	assert.Equal(t, int64(3), broadcasts[1].MessagesSent)
	assert.Equal(t, int64(1), broadcasts[1].MessagesFailed)
	assert.Equal(t, "Test Guild", broadcasts[1].GuildName)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
