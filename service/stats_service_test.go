package service

import (
	"context"
	"testing"

	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_SystemStats(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("Count", ctx).Return(int64(3), nil)
	m.accounts.On("SumCredits", ctx).Return(int64(120), nil)
	m.transactions.On("Count", ctx).Return(int64(9), nil)
	m.broadcasts.On("Count", ctx).Return(int64(4), nil)

	stats, err := NewStatsService(m.factory).SystemStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, &models.SystemStats{
		TotalUsers:                3,
		TotalTransactions:         9,
		TotalBroadcasts:           4,
		TotalCreditsInCirculation: 120,
	}, stats)
	m.assertExpectations(t)
}

func TestStatsService_SystemStats_Error(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("Count", ctx).Return(int64(0), ErrStoreUnavailable)

	_, err := NewStatsService(m.factory).SystemStats(ctx)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestStatsService_UserStats(t *testing.T) {
	t.Run("known user", func(t *testing.T) {
		ctx := context.Background()
		m := newServiceMocks(ctx)
		m.accounts.On("GetByDiscordID", ctx, int64(42)).Return(&models.Account{
			DiscordID:         42,
			Credits:           7,
			TotalSpent:        3,
			TotalMessagesSent: 3,
			TotalBroadcasts:   1,
		}, nil)

		stats, err := NewStatsService(m.factory).UserStats(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, &models.UserStats{Credits: 7, TotalSpent: 3, TotalMessagesSent: 3, TotalBroadcasts: 1}, stats)
	})

	t.Run("unknown user returns zeros", func(t *testing.T) {
		ctx := context.Background()
		m := newServiceMocks(ctx)
		m.accounts.On("GetByDiscordID", ctx, int64(42)).Return(nil, nil)

		stats, err := NewStatsService(m.factory).UserStats(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, &models.UserStats{}, stats)
	})
}

func TestStatsService_ListDefaults(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("List", ctx, DefaultAccountListLimit, 0).Return([]*models.Account{}, nil)
	m.transactions.On("ListAll", ctx, DefaultTransactionListLimit, 0).Return([]*models.Transaction{}, nil)

	service := NewStatsService(m.factory)

	_, err := service.ListAccounts(ctx, 0, -3)
	require.NoError(t, err)
	_, err = service.ListTransactions(ctx, 0, 0)
	require.NoError(t, err)

	m.assertExpectations(t)
}

func TestStatsService_Reconcile(t *testing.T) {
	tests := []struct {
		name     string
		account  *models.Account
		credited int64
		spent    int64
		wantErr  error
	}{
		{"balanced", &models.Account{DiscordID: 42, Credits: 7, TotalSpent: 3}, 10, 3, nil},
		{"balance drift", &models.Account{DiscordID: 42, Credits: 8, TotalSpent: 3}, 10, 3, ErrInvariantViolation},
		{"spent drift", &models.Account{DiscordID: 42, Credits: 7, TotalSpent: 2}, 10, 3, ErrInvariantViolation},
		{"unknown user", nil, 0, 0, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := newServiceMocks(ctx)

			m.accounts.On("GetByDiscordID", ctx, int64(42)).Return(tt.account, nil)
			if tt.account != nil {
				m.transactions.On("SumsByUser", ctx, int64(42)).Return(tt.credited, tt.spent, nil)
			}

			err := NewStatsService(m.factory).Reconcile(ctx, 42)

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
