package application_test

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/stretchr/testify/mock"
	"github.com/waveportal/waved/internal/core/ports"
)

type mockedWallet struct {
	mock.Mock
}

func (m *mockedWallet) IsPresent() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockedWallet) GetAuthorizedAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockedWallet) RequestAccountAccess(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockedWallet) Transactor(
	ctx context.Context, account string,
) (*bind.TransactOpts, error) {
	args := m.Called(ctx, account)

	var res *bind.TransactOpts
	if a := args.Get(0); a != nil {
		res = a.(*bind.TransactOpts)
	}
	return res, args.Error(1)
}

func (m *mockedWallet) Close() {
	m.Called()
}

type mockedContract struct {
	mock.Mock

	lock    sync.Mutex
	handler ports.NewWaveHandler
}

func (m *mockedContract) ReadAllWaves(ctx context.Context) ([]ports.RawWave, uint64, error) {
	args := m.Called(ctx)

	var res []ports.RawWave
	if a := args.Get(0); a != nil {
		res = a.([]ports.RawWave)
	}
	return res, args.Get(1).(uint64), args.Error(2)
}

func (m *mockedContract) ReadTotalWaveCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockedContract) SubmitWave(
	ctx context.Context, auth *bind.TransactOpts, message string, gasLimit uint64,
) (ports.PendingTx, error) {
	args := m.Called(ctx, auth, message, gasLimit)

	var res ports.PendingTx
	if a := args.Get(0); a != nil {
		res = a.(ports.PendingTx)
	}
	return res, args.Error(1)
}

func (m *mockedContract) SubscribeNewWaves(
	ctx context.Context, fromBlock *uint64, handler ports.NewWaveHandler,
) (ports.Subscription, error) {
	args := m.Called(ctx, fromBlock)

	var res ports.Subscription
	if a := args.Get(0); a != nil {
		res = a.(ports.Subscription)
	}
	if args.Error(1) == nil {
		m.lock.Lock()
		m.handler = handler
		m.lock.Unlock()
	}
	return res, args.Error(1)
}

func (m *mockedContract) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockedContract) Close() {
	m.Called()
}

func (m *mockedContract) emit(wave ports.RawWave) {
	m.lock.Lock()
	handler := m.handler
	m.lock.Unlock()
	handler(wave)
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(interval int64, immediate bool, task func()) error {
	args := m.Called(interval, immediate, task)
	return args.Error(0)
}

type fakeSubscription struct {
	once  sync.Once
	errCh chan error
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1)}
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.errCh) })
}

func (s *fakeSubscription) Err() <-chan error {
	return s.errCh
}

// fail reports err and ends the feed, like a node dropping the connection.
func (s *fakeSubscription) fail(err error) {
	s.once.Do(func() {
		s.errCh <- err
		close(s.errCh)
	})
}

// fakePendingTx blocks AwaitConfirmation until release is closed.
type fakePendingTx struct {
	hash    string
	receipt *ports.Receipt
	err     error
	waiting chan<- string
	release <-chan struct{}
}

func (tx *fakePendingTx) Hash() string {
	return tx.hash
}

func (tx *fakePendingTx) AwaitConfirmation(ctx context.Context) (*ports.Receipt, error) {
	if tx.waiting != nil {
		tx.waiting <- tx.hash
	}
	if tx.release != nil {
		select {
		case <-tx.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return tx.receipt, tx.err
}
