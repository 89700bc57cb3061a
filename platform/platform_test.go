package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/classboard/internal/testutil"
)

func TestSessionsPruneExpired(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	sessions := NewSessions(conn)
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, "live", "user-1", time.Hour))
	require.NoError(t, sessions.Create(ctx, "dead", "user-2", -time.Hour))

	valid, err := sessions.Valid(ctx, "live")
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = sessions.Valid(ctx, "dead")
	require.NoError(t, err)
	assert.False(t, valid)

	pruned, err := sessions.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	// Second prune finds nothing
	pruned, err = sessions.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	valid, err = sessions.Valid(ctx, "live")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestCacheEvictExpired(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	cache := NewCache(conn)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "fresh", "a", time.Hour))
	require.NoError(t, cache.Put(ctx, "stale", "b", -time.Minute))

	// Expired entries are already invisible before the sweep
	_, ok, err := cache.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	evicted, err := cache.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	value, ok, err := cache.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", value)
}

func TestCachePutOverwrites(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	cache := NewCache(conn)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", "old", time.Hour))
	require.NoError(t, cache.Put(ctx, "k", "new", time.Hour))

	value, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", value)
}

func TestRewardsRebuildLeaderboards(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	rewards := NewRewards(conn)
	ctx := context.Background()

	require.NoError(t, rewards.Award(ctx, "class-7a", "alice", 10))
	require.NoError(t, rewards.Award(ctx, "class-7a", "alice", 5))
	require.NoError(t, rewards.Award(ctx, "class-7a", "bob", 12))
	require.NoError(t, rewards.Award(ctx, "class-7b", "cara", 3))

	scopes, err := rewards.RebuildLeaderboards(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, scopes)

	standings, err := rewards.Standings(ctx, "class-7a")
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, Standing{StudentID: "alice", Points: 15, Rank: 1}, standings[0])
	assert.Equal(t, Standing{StudentID: "bob", Points: 12, Rank: 2}, standings[1])
}

func TestRewardsRebuildReplacesStaleStandings(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	rewards := NewRewards(conn)
	ctx := context.Background()

	require.NoError(t, rewards.Award(ctx, "class-7a", "alice", 1))
	_, err := rewards.RebuildLeaderboards(ctx)
	require.NoError(t, err)

	require.NoError(t, rewards.Award(ctx, "class-7a", "bob", 99))
	_, err = rewards.RebuildLeaderboards(ctx)
	require.NoError(t, err)

	standings, err := rewards.Standings(ctx, "class-7a")
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, "bob", standings[0].StudentID)
}

func TestMessagesReanalyzeFlagged(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	messages := NewMessages(conn)
	ctx := context.Background()

	require.NoError(t, messages.Flag(ctx, "m1", "want to buy the answer key before the test"))
	require.NoError(t, messages.Flag(ctx, "m2", "see you at practice tomorrow"))

	scored, err := messages.ReanalyzeFlagged(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, scored)

	hot, ok, err := messages.Score(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, hot, 0.0)

	cold, ok, err := messages.Score(ctx, "m2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, cold)

	// Already-analyzed messages are not rescored
	scored, err = messages.ReanalyzeFlagged(ctx)
	require.NoError(t, err)
	assert.Zero(t, scored)
}

func TestFeesApplyLateCharges(t *testing.T) {
	conn := testutil.CreateTestDB(t)
	fees := NewFees(conn)
	ctx := context.Background()

	overdue := time.Now().AddDate(0, 0, -(GraceDays + 5))
	require.NoError(t, fees.AddInvoice(ctx, "inv-1", "alice", 10000, overdue))
	require.NoError(t, fees.AddInvoice(ctx, "inv-2", "bob", 5000, time.Now().AddDate(0, 0, 10)))
	require.NoError(t, fees.AddInvoice(ctx, "inv-3", "cara", 8000, overdue))
	require.NoError(t, fees.MarkPaid(ctx, "inv-3"))

	charged, err := fees.ApplyLateCharges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, charged)

	fee, err := fees.LateFee(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 1000, fee)

	// Not yet due and already paid invoices are untouched
	fee, err = fees.LateFee(ctx, "inv-2")
	require.NoError(t, err)
	assert.Zero(t, fee)
	fee, err = fees.LateFee(ctx, "inv-3")
	require.NoError(t, err)
	assert.Zero(t, fee)

	// The charge is applied once, not compounded on the next run
	charged, err = fees.ApplyLateCharges(ctx)
	require.NoError(t, err)
	assert.Zero(t, charged)
}
