package service

import (
	"context"
	"testing"

	"broadcaster/events"
	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func assignBroadcastID(id string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(1).(*models.Broadcast).ID = id
	}
}

func TestBroadcastService_RecordBroadcast(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	record := models.BroadcastRecord{
		DiscordID:      42,
		GuildID:        "g1",
		GuildName:      "Guild",
		Message:        "hello",
		TargetType:     models.TargetTypeAll,
		MessagesSent:   3,
		MessagesFailed: 1,
		CreditsUsed:    3,
	}

	m.accounts.On("IncrementBroadcastCounters", ctx, int64(42), int64(3)).
		Return(&models.Account{DiscordID: 42, TotalMessagesSent: 3, TotalBroadcasts: 1}, nil)
	m.broadcasts.On("Create", ctx, mock.AnythingOfType("*models.Broadcast")).
		Run(assignBroadcastID("b-1")).Return(nil)
	m.events.On("Publish", events.BroadcastRecordedEvent{
		BroadcastID:    "b-1",
		DiscordID:      42,
		GuildID:        "g1",
		MessagesSent:   3,
		MessagesFailed: 1,
		CreditsUsed:    3,
	}).Return()

	broadcast, err := NewBroadcastService(m.factory).RecordBroadcast(ctx, record)

	require.NoError(t, err)
	assert.Equal(t, "b-1", broadcast.ID)
	assert.Equal(t, int64(3), broadcast.CreditsUsed)
	m.accounts.AssertNotCalled(t, "DeductCredits", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBroadcastService_RecordBroadcast_UserNotFound(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("IncrementBroadcastCounters", ctx, int64(42), int64(3)).Return(nil, nil)

	_, err := NewBroadcastService(m.factory).RecordBroadcast(ctx, models.BroadcastRecord{
		DiscordID:    42,
		GuildID:      "g1",
		MessagesSent: 3,
	})

	assert.ErrorIs(t, err, ErrUserNotFound)
	m.broadcasts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBroadcastService_RecordBroadcast_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record models.BroadcastRecord
	}{
		{"missing user", models.BroadcastRecord{GuildID: "g1"}},
		{"missing guild", models.BroadcastRecord{DiscordID: 1}},
		{"negative sent", models.BroadcastRecord{DiscordID: 1, GuildID: "g1", MessagesSent: -1}},
		{"negative credits", models.BroadcastRecord{DiscordID: 1, GuildID: "g1", CreditsUsed: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := new(MockUnitOfWorkFactory)
			_, err := NewBroadcastService(factory).RecordBroadcast(context.Background(), tt.record)

			assert.Error(t, err)
			factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestBroadcastService_ChargeAndRecord(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	record := models.BroadcastRecord{
		DiscordID:      42,
		GuildID:        "g1",
		GuildName:      "Guild",
		MessagesSent:   3,
		MessagesFailed: 1,
		CreditsUsed:    3,
	}

	m.accounts.On("DeductCredits", ctx, int64(42), int64(3)).
		Return(&models.Account{DiscordID: 42, Credits: 7, TotalSpent: 3}, nil)
	m.transactions.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeSpend && tx.Amount == 3 &&
			tx.Description == "Broadcast to Guild (3 sent, 1 failed)"
	})).Return("tx-1", nil)
	m.accounts.On("IncrementBroadcastCounters", ctx, int64(42), int64(3)).
		Return(&models.Account{DiscordID: 42, Credits: 7, TotalSpent: 3, TotalMessagesSent: 3, TotalBroadcasts: 1}, nil)
	m.broadcasts.On("Create", ctx, mock.AnythingOfType("*models.Broadcast")).
		Run(assignBroadcastID("b-1")).Return(nil)
	m.events.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
	m.events.On("Publish", mock.AnythingOfType("events.BroadcastRecordedEvent")).Return()

	broadcast, tx, err := NewBroadcastService(m.factory).ChargeAndRecord(ctx, record)

	require.NoError(t, err)
	assert.Equal(t, "b-1", broadcast.ID)
	assert.Equal(t, "tx-1", tx.ID)
	m.assertExpectations(t)
}

func TestBroadcastService_ChargeAndRecord_InsufficientCreditsRecordsNothing(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.accounts.On("DeductCredits", ctx, int64(42), int64(20)).Return(nil, nil)
	m.accounts.On("GetByDiscordID", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Credits: 10}, nil)

	_, _, err := NewBroadcastService(m.factory).ChargeAndRecord(ctx, models.BroadcastRecord{
		DiscordID:    42,
		GuildID:      "g1",
		MessagesSent: 20,
		CreditsUsed:  20,
	})

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	m.accounts.AssertNotCalled(t, "IncrementBroadcastCounters", mock.Anything, mock.Anything, mock.Anything)
	m.broadcasts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestBroadcastService_ChargeAndRecord_ZeroCreditsSkipsSpend(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)
	m.expectCommit()

	m.accounts.On("IncrementBroadcastCounters", ctx, int64(42), int64(0)).
		Return(&models.Account{DiscordID: 42, TotalBroadcasts: 1}, nil)
	m.broadcasts.On("Create", ctx, mock.AnythingOfType("*models.Broadcast")).
		Run(assignBroadcastID("b-1")).Return(nil)
	m.events.On("Publish", mock.AnythingOfType("events.BroadcastRecordedEvent")).Return()

	broadcast, tx, err := NewBroadcastService(m.factory).ChargeAndRecord(ctx, models.BroadcastRecord{
		DiscordID:      42,
		GuildID:        "g1",
		MessagesFailed: 5,
	})

	require.NoError(t, err)
	assert.Nil(t, tx)
	assert.Equal(t, int64(5), broadcast.MessagesFailed)
	m.accounts.AssertNotCalled(t, "DeductCredits", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastService_ListBroadcasts_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks(ctx)

	m.broadcasts.On("ListByUser", ctx, int64(42), DefaultBroadcastListLimit).Return([]*models.Broadcast{}, nil)

	got, err := NewBroadcastService(m.factory).ListBroadcasts(ctx, 42, -1)

	require.NoError(t, err)
	assert.Empty(t, got)
	m.assertExpectations(t)
}
