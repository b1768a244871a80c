package service

import (
	"context"
	"errors"
	"testing"

	"broadcaster/events"
	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Upsert_NewAccount(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	profile := models.AccountProfile{DiscordID: 123456, Username: "newuser"}
	created := &models.Account{DiscordID: 123456, Username: "newuser"}

	m.accounts.On("Upsert", ctx, profile).Return(created, true, nil)
	m.events.On("Publish", events.AccountCreatedEvent{DiscordID: 123456, Username: "newuser"}).Return()

	service := NewAccountService(m.factory)
	account, err := service.Upsert(ctx, profile)

	require.NoError(t, err)
	assert.Equal(t, created, account)
	m.assertExpectations(t)
}

func TestAccountService_Upsert_ExistingAccountKeepsBalance(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	profile := models.AccountProfile{DiscordID: 123456, Username: "renamed"}
	existing := &models.Account{DiscordID: 123456, Username: "renamed", Credits: 42, TotalSpent: 7}

	m.accounts.On("Upsert", ctx, profile).Return(existing, false, nil)

	service := NewAccountService(m.factory)
	account, err := service.Upsert(ctx, profile)

	require.NoError(t, err)
	assert.Equal(t, int64(42), account.Credits)
	assert.Equal(t, int64(7), account.TotalSpent)
	m.events.AssertNumberOfCalls(t, "Publish", 0)
	m.assertExpectations(t)
}

func TestAccountService_Upsert_MissingDiscordID(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	service := NewAccountService(m.factory)
	_, err := service.Upsert(ctx, models.AccountProfile{Username: "nobody"})

	assert.Error(t, err)
	m.factory.AssertNotCalled(t, "Create")
}

func TestAccountService_Upsert_RepositoryError(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	profile := models.AccountProfile{DiscordID: 1}
	m.accounts.On("Upsert", ctx, profile).Return(nil, false, ErrStoreUnavailable)

	service := NewAccountService(m.factory)
	_, err := service.Upsert(ctx, profile)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestAccountService_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctx := context.Background()
		m := newServiceMocks(ctx)
		existing := &models.Account{DiscordID: 5, Credits: 3}
		m.accounts.On("GetByDiscordID", ctx, int64(5)).Return(existing, nil)

		account, err := NewAccountService(m.factory).Get(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, existing, account)
	})

	t.Run("not found", func(t *testing.T) {
		ctx := context.Background()
		m := newServiceMocks(ctx)
		m.accounts.On("GetByDiscordID", ctx, int64(5)).Return(nil, nil)

		_, err := NewAccountService(m.factory).Get(ctx, 5)

		assert.True(t, errors.Is(err, ErrUserNotFound))
	})
}
