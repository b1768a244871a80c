package mongorepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"broadcaster/events"
	"broadcaster/models"
	"broadcaster/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// setupTestStore starts a single-node replica set, since units of work
// need multi-document transactions.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx,
		"mongo:7",
		mongodb.WithReplicaSet("rs0"),
		testcontainers.WithLabels(map[string]string{
			"test":      "broadcaster-mongorepo",
			"test-name": t.Name(),
			"cleanup":   "auto",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate test container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := Connect(ctx, uri, "broadcaster_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	require.NoError(t, store.Migrate(ctx))
	// A second run must not fail on existing indexes
	require.NoError(t, store.Migrate(ctx))

	return store
}

func TestMongoStore_Accounts(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	repo := NewAccountRepository(store)
	ctx := context.Background()

	account, created, err := repo.Upsert(ctx, models.AccountProfile{DiscordID: 42, Username: "alice", AvatarURL: "a.png"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, account.Credits)

	_, err = repo.AddCredits(ctx, 42, 10)
	require.NoError(t, err)

	account, created, err = repo.Upsert(ctx, models.AccountProfile{DiscordID: 42, Username: "alice2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice2", account.Username)
	assert.Equal(t, "a.png", account.AvatarURL)
	assert.Equal(t, int64(10), account.Credits)

	short, err := repo.DeductCredits(ctx, 42, 11)
	require.NoError(t, err)
	assert.Nil(t, short)

	account, err = repo.DeductCredits(ctx, 42, 8)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(2), account.Credits)
	assert.Equal(t, int64(8), account.TotalSpent)

	missing, err := repo.AddCredits(ctx, 7, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	sum, err := repo.SumCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMongoStore_PaymentsClaimOldestFirst(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	repo := NewPaymentRepository(store)
	ctx := context.Background()

	base := now()
	older := &models.Payment{DiscordID: 42, Amount: 5000, CreatedAt: base, ExpiresAt: base.Add(30 * time.Minute)}
	newer := &models.Payment{DiscordID: 42, Amount: 5000, CreatedAt: base.Add(time.Minute), ExpiresAt: base.Add(31 * time.Minute)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	active, err := repo.FindActive(ctx, 42, 5000, base.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, active, "both expired at the window end")

	first, err := repo.Claim(ctx, 42, 5000, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, older.ID, first.ID)
	assert.Equal(t, models.PaymentStatusConfirmed, first.Status)

	transitioned, err := repo.MarkConfirmed(ctx, newer.ID, base)
	require.NoError(t, err)
	assert.True(t, transitioned)

	transitioned, err = repo.MarkConfirmed(ctx, newer.ID, base)
	require.NoError(t, err)
	assert.False(t, transitioned)

	none, err := repo.Claim(ctx, 42, 5000, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, none)

	unknown, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestMongoStore_TransactionsAndKeys(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	txRepo := NewTransactionRepository(store)
	keyRepo := NewTopUpKeyRepository(store)
	ctx := context.Background()

	for _, tx := range []*models.Transaction{
		{DiscordID: 42, Type: models.TransactionTypeCredit, Amount: 10},
		{DiscordID: 42, Type: models.TransactionTypeSpend, Amount: 8},
		{DiscordID: 42, Type: models.TransactionTypeRefund, Amount: 3},
	} {
		_, err := txRepo.Append(ctx, tx)
		require.NoError(t, err)
	}

	credited, spent, err := txRepo.SumsByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(13), credited)
	assert.Equal(t, int64(8), spent)

	txs, err := txRepo.ListByUser(ctx, 42, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionTypeRefund, txs[0].Type)

	got, err := txRepo.GetByID(ctx, txs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txs[0].ID, got.ID)

	reserved, err := keyRepo.Reserve(ctx, "k1", 42)
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = keyRepo.Reserve(ctx, "k1", 42)
	require.NoError(t, err)
	assert.False(t, reserved)

	require.NoError(t, keyRepo.AttachTransaction(ctx, "k1", txs[0].ID))
	key, err := keyRepo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, txs[0].ID, key.TransactionID)
}

func TestMongoStore_UnitOfWork(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	accounts := service.NewAccountService(factory)
	ledger := service.NewLedgerService(factory, 500)
	broadcasts := service.NewBroadcastService(factory)
	stats := service.NewStatsService(factory)

	_, err := accounts.Upsert(ctx, models.AccountProfile{DiscordID: 42, Username: "bob"})
	require.NoError(t, err)

	result, err := ledger.TopUp(ctx, service.TopUpRequest{DiscordID: 42, ExternalAmount: 5000, IdempotencyKey: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Credits)

	replay, err := ledger.TopUp(ctx, service.TopUpRequest{DiscordID: 42, ExternalAmount: 5000, IdempotencyKey: "order-1"})
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)

	_, _, err = broadcasts.ChargeAndRecord(ctx, models.BroadcastRecord{
		DiscordID: 42, GuildID: "g", MessagesSent: 20, CreditsUsed: 20,
	})
	require.ErrorIs(t, err, service.ErrInsufficientCredits)

	_, _, err = broadcasts.ChargeAndRecord(ctx, models.BroadcastRecord{
		DiscordID: 42, GuildID: "g", MessagesSent: 3, MessagesFailed: 1, CreditsUsed: 3,
	})
	require.NoError(t, err)

	userStats, err := stats.UserStats(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, &models.UserStats{Credits: 7, TotalSpent: 3, TotalMessagesSent: 3, TotalBroadcasts: 1}, userStats)

	require.NoError(t, stats.Reconcile(ctx, 42))
}

func TestMongoStore_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	accounts := service.NewAccountService(factory)
	ledger := service.NewLedgerService(factory, 500)

	_, err := accounts.Upsert(ctx, models.AccountProfile{DiscordID: 42})
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, 42, 10, "seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Spend(ctx, 42, 8, "race")
		}(i)
	}
	wg.Wait()

	// The loser's write conflict is retried and then fails the balance check
	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, service.ErrInsufficientCredits):
			insufficient++
		default:
			t.Errorf("unexpected spend error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	account, err := accounts.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), account.Credits)
	assert.Equal(t, int64(8), account.TotalSpent)
	require.NoError(t, service.NewStatsService(factory).Reconcile(ctx, 42))
}

func TestMongoStore_ConcurrentSpendAndCreditBothLand(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	accounts := service.NewAccountService(factory)
	ledger := service.NewLedgerService(factory, 500)

	_, err := accounts.Upsert(ctx, models.AccountProfile{DiscordID: 43})
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, 43, 20, "seed")
	require.NoError(t, err)

	const rounds = 5
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ledger.Spend(ctx, 43, 1, "race spend")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := ledger.Credit(ctx, 43, 1, "race credit")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	account, err := accounts.Get(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, int64(20), account.Credits)
	require.NoError(t, service.NewStatsService(factory).Reconcile(ctx, 43))
}
