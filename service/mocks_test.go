package service

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// serviceMocks bundles a unit of work wired to fresh repository mocks
type serviceMocks struct {
	factory      *MockUnitOfWorkFactory
	uow          *MockUnitOfWork
	accounts     *MockAccountRepository
	transactions *MockTransactionRepository
	broadcasts   *MockBroadcastRepository
	payments     *MockPaymentRepository
	topUpKeys    *MockTopUpKeyRepository
	events       *MockEventPublisher
}

func newServiceMocks(ctx context.Context) *serviceMocks {
	m := &serviceMocks{
		factory:      new(MockUnitOfWorkFactory),
		uow:          new(MockUnitOfWork),
		accounts:     new(MockAccountRepository),
		transactions: new(MockTransactionRepository),
		broadcasts:   new(MockBroadcastRepository),
		payments:     new(MockPaymentRepository),
		topUpKeys:    new(MockTopUpKeyRepository),
		events:       new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.accounts, m.transactions, m.broadcasts, m.payments, m.topUpKeys)
	m.uow.SetEventBus(m.events)

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	return m
}

func (m *serviceMocks) expectCommit() {
	m.uow.On("Commit").Return(nil)
}

func (m *serviceMocks) assertExpectations(t mock.TestingT) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.transactions.AssertExpectations(t)
	m.broadcasts.AssertExpectations(t)
	m.payments.AssertExpectations(t)
	m.topUpKeys.AssertExpectations(t)
	m.events.AssertExpectations(t)
}
