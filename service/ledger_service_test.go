package service

import (
	"context"
	"errors"
	"testing"

	"broadcaster/events"
	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func txMatching(discordID int64, txType models.TransactionType, amount int64) interface{} {
	return mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.DiscordID == discordID && tx.Type == txType && tx.Amount == amount
	})
}

func TestLedgerService_ConvertExternalAmount(t *testing.T) {
	t.Parallel()

	service := NewLedgerService(nil, 500)

	tests := []struct {
		name     string
		external int64
		want     int64
	}{
		{"exact multiple", 5000, 10},
		{"rounds down", 5499, 10},
		{"below rate", 499, 0},
		{"exactly one credit", 500, 1},
		{"zero", 0, 0},
		{"negative", -500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ConvertExternalAmount(tt.external))
		})
	}
}

func TestLedgerService_NonPositiveRateUsesDefault(t *testing.T) {
	t.Parallel()

	service := NewLedgerService(nil, 0)
	assert.Equal(t, int64(1), service.ConvertExternalAmount(DefaultExchangeRate))
}

func TestLedgerService_Credit(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	m.accounts.On("AddCredits", ctx, int64(123), int64(10)).
		Return(&models.Account{DiscordID: 123, Credits: 15}, nil)
	m.transactions.On("Append", ctx, txMatching(123, models.TransactionTypeCredit, 10)).Return("tx-1", nil)
	m.events.On("Publish", events.BalanceChangeEvent{
		DiscordID:       123,
		TransactionID:   "tx-1",
		TransactionType: models.TransactionTypeCredit,
		Amount:          10,
		NewBalance:      15,
	}).Return()

	tx, err := NewLedgerService(m.factory, 500).Credit(ctx, 123, 10, "Payment confirmed")

	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "Payment confirmed", tx.Description)
	m.assertExpectations(t)
}

func TestLedgerService_Credit_UserNotFound(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("AddCredits", ctx, int64(999), int64(10)).Return(nil, nil)

	_, err := NewLedgerService(m.factory, 500).Credit(ctx, 999, 10, "")

	assert.ErrorIs(t, err, ErrUserNotFound)
	m.transactions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_InvalidAmounts(t *testing.T) {
	t.Parallel()

	ops := map[string]func(LedgerService, int64) error{
		"credit": func(s LedgerService, amount int64) error {
			_, err := s.Credit(context.Background(), 1, amount, "")
			return err
		},
		"spend": func(s LedgerService, amount int64) error {
			_, err := s.Spend(context.Background(), 1, amount, "")
			return err
		},
		"refund": func(s LedgerService, amount int64) error {
			_, err := s.Refund(context.Background(), 1, amount, "")
			return err
		},
	}

	for name, op := range ops {
		for _, amount := range []int64{0, -1} {
			t.Run(name, func(t *testing.T) {
				factory := new(MockUnitOfWorkFactory)
				err := op(NewLedgerService(factory, 500), amount)

				assert.ErrorIs(t, err, ErrInvalidAmount)
				factory.AssertNotCalled(t, "Create")
			})
		}
	}
}

func TestLedgerService_Spend(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	m.accounts.On("DeductCredits", ctx, int64(123), int64(8)).
		Return(&models.Account{DiscordID: 123, Credits: 2, TotalSpent: 8}, nil)
	m.transactions.On("Append", ctx, txMatching(123, models.TransactionTypeSpend, 8)).Return("tx-2", nil)
	m.events.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()

	tx, err := NewLedgerService(m.factory, 500).Spend(ctx, 123, 8, "Broadcast")

	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeSpend, tx.Type)
	assert.Equal(t, int64(-8), tx.SignedAmount())
	m.assertExpectations(t)
}

func TestLedgerService_Spend_InsufficientCredits(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("DeductCredits", ctx, int64(123), int64(8)).Return(nil, nil)
	m.accounts.On("GetByDiscordID", ctx, int64(123)).
		Return(&models.Account{DiscordID: 123, Credits: 5}, nil)

	_, err := NewLedgerService(m.factory, 500).Spend(ctx, 123, 8, "Broadcast")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientCredits))
	assert.Contains(t, err.Error(), "have 5, need 8")
	m.transactions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Spend_UserNotFound(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("DeductCredits", ctx, int64(123), int64(1)).Return(nil, nil)
	m.accounts.On("GetByDiscordID", ctx, int64(123)).Return(nil, nil)

	_, err := NewLedgerService(m.factory, 500).Spend(ctx, 123, 1, "")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLedgerService_Spend_AppendFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("DeductCredits", ctx, int64(123), int64(1)).
		Return(&models.Account{DiscordID: 123, Credits: 0, TotalSpent: 1}, nil)
	m.transactions.On("Append", ctx, mock.Anything).Return("", ErrStoreUnavailable)

	_, err := NewLedgerService(m.factory, 500).Spend(ctx, 123, 1, "")

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvariantViolation, "the rollback leaves nothing to reconcile")
	m.uow.AssertNotCalled(t, "Commit")
	m.uow.AssertCalled(t, "Rollback")
}

func TestLedgerService_Refund(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	m.accounts.On("AddCredits", ctx, int64(123), int64(3)).
		Return(&models.Account{DiscordID: 123, Credits: 3, TotalSpent: 8}, nil)
	m.transactions.On("Append", ctx, txMatching(123, models.TransactionTypeRefund, 3)).Return("tx-3", nil)
	m.events.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()

	tx, err := NewLedgerService(m.factory, 500).Refund(ctx, 123, 3, "Failed deliveries")

	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeRefund, tx.Type)
	m.accounts.AssertNotCalled(t, "DeductCredits", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestLedgerService_TopUp(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	m.accounts.On("GetByDiscordID", ctx, int64(123)).Return(&models.Account{DiscordID: 123}, nil)
	m.topUpKeys.On("Reserve", ctx, "key-1", int64(123)).Return(true, nil)
	m.accounts.On("AddCredits", ctx, int64(123), int64(10)).
		Return(&models.Account{DiscordID: 123, Credits: 10}, nil)
	m.transactions.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Amount == 10 && tx.Description == "Manual credit addition - 5000 ProBot credits"
	})).Return("tx-1", nil)
	m.topUpKeys.On("AttachTransaction", ctx, "key-1", "tx-1").Return(nil)
	m.events.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()

	result, err := NewLedgerService(m.factory, 500).TopUp(ctx, TopUpRequest{
		DiscordID:      123,
		ExternalAmount: 5000,
		IdempotencyKey: "key-1",
	})

	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(10), result.Credits)
	assert.Equal(t, "tx-1", result.Transaction.ID)
	m.assertExpectations(t)
}

func TestLedgerService_TopUp_ReplayedKey(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	original := &models.Transaction{ID: "tx-1", DiscordID: 123, Type: models.TransactionTypeCredit, Amount: 10}

	m.accounts.On("GetByDiscordID", ctx, int64(123)).Return(&models.Account{DiscordID: 123, Credits: 10}, nil)
	m.topUpKeys.On("Reserve", ctx, "key-1", int64(123)).Return(false, nil)
	m.topUpKeys.On("Get", ctx, "key-1").Return(&models.TopUpKey{Key: "key-1", DiscordID: 123, TransactionID: "tx-1"}, nil)
	m.transactions.On("GetByID", ctx, "tx-1").Return(original, nil)

	result, err := NewLedgerService(m.factory, 500).TopUp(ctx, TopUpRequest{
		DiscordID:      123,
		ExternalAmount: 5000,
		IdempotencyKey: "key-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, original, result.Transaction)
	assert.Equal(t, int64(10), result.Credits)
	m.accounts.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_TopUp_KeyOwnedByAnotherUser(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("GetByDiscordID", ctx, int64(123)).Return(&models.Account{DiscordID: 123}, nil)
	m.topUpKeys.On("Reserve", ctx, "key-1", int64(123)).Return(false, nil)
	m.topUpKeys.On("Get", ctx, "key-1").Return(&models.TopUpKey{Key: "key-1", DiscordID: 456}, nil)

	_, err := NewLedgerService(m.factory, 500).TopUp(ctx, TopUpRequest{
		DiscordID:      123,
		ExternalAmount: 5000,
		IdempotencyKey: "key-1",
	})

	assert.Error(t, err)
	m.accounts.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_TopUp_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     TopUpRequest
		wantErr error
	}{
		{"below exchange rate", TopUpRequest{DiscordID: 1, ExternalAmount: 499, IdempotencyKey: "k"}, ErrAmountTooSmall},
		{"zero amount", TopUpRequest{DiscordID: 1, ExternalAmount: 0, IdempotencyKey: "k"}, ErrInvalidAmount},
		{"missing key", TopUpRequest{DiscordID: 1, ExternalAmount: 5000}, ErrMissingIdempotencyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := new(MockUnitOfWorkFactory)
			_, err := NewLedgerService(factory, 500).TopUp(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestLedgerService_TopUp_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("GetByDiscordID", ctx, int64(123)).Return(nil, nil)

	_, err := NewLedgerService(m.factory, 500).TopUp(ctx, TopUpRequest{
		DiscordID:      123,
		ExternalAmount: 5000,
		IdempotencyKey: "key-1",
	})

	assert.ErrorIs(t, err, ErrUserNotFound)
	m.topUpKeys.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_ListTransactions_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	txs := []*models.Transaction{{ID: "b"}, {ID: "a"}}
	m.transactions.On("ListByUser", ctx, int64(123), DefaultTransactionListLimit).Return(txs, nil)

	got, err := NewLedgerService(m.factory, 500).ListTransactions(ctx, 123, 0)

	require.NoError(t, err)
	assert.Equal(t, txs, got)
	m.assertExpectations(t)
}

func TestCreditsFor(t *testing.T) {
	t.Parallel()

	credits, err := creditsFor(5499, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(10), credits)

	_, err = creditsFor(499, 500)
	assert.True(t, errors.Is(err, ErrAmountTooSmall))

	ledger := NewLedgerService(nil, 500)
	for _, external := range []int64{0, 499, 500, 12345, 1_000_000} {
		assert.Equal(t, convertExternal(external, 500), ledger.ConvertExternalAmount(external))
	}
}
