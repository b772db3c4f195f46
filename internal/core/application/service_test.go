package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waveportal/waved/internal/core/application"
	"github.com/waveportal/waved/internal/core/domain"
	"github.com/waveportal/waved/internal/core/ports"
)

const (
	gasLimit = uint64(300000)
	account  = "0xABC"
)

var (
	rawWaves = []ports.RawWave{
		{Waver: "0x111", Message: "first", Timestamp: 1700000000},
		{Waver: "0x222", Message: "", Timestamp: 1700000060},
		{Waver: "0x111", Message: "third", Timestamp: 1700000120},
	}
	auth = &bind.TransactOpts{}
)

func TestDetectAndLoad(t *testing.T) {
	t.Run("without_wallet", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(false)
		wallet.On("Close").Return()
		contract.On("Close").Return()

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		require.NotPanics(t, func() {
			err := svc.Start()
			require.NoError(t, err)
		})

		session := svc.GetSession(context.Background())
		require.False(t, session.WalletPresent)
		require.False(t, session.Connected)
		require.Empty(t, session.Address)
		require.Empty(t, svc.ListWaves(context.Background()))

		contract.AssertNotCalled(t, "ReadAllWaves", mock.Anything)
		contract.AssertNotCalled(t, "SubscribeNewWaves", mock.Anything, mock.Anything)
		svc.Stop()
	})

	t.Run("no_authorized_account", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{}, nil)

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		svc.DetectAndLoad(context.Background())

		require.False(t, svc.GetSession(context.Background()).Connected)
		require.Empty(t, svc.ListWaves(context.Background()))
		contract.AssertNotCalled(t, "ReadAllWaves", mock.Anything)
	})

	t.Run("authorized_account_loads_waves", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		wallet.On("GetAuthorizedAccounts", mock.Anything).
			Return([]string{account, "0xDEF"}, nil)
		contract.On("ReadAllWaves", mock.Anything).Return(rawWaves, uint64(10), nil)

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		svc.DetectAndLoad(context.Background())

		session := svc.GetSession(context.Background())
		require.True(t, session.Connected)
		require.Equal(t, account, session.Address)

		waves := svc.ListWaves(context.Background())
		require.Len(t, waves, len(rawWaves))
		for i, w := range waves {
			require.Equal(t, rawWaves[i].Waver, w.Address)
			require.Equal(t, rawWaves[i].Message, w.Message)
			require.Equal(t, int64(rawWaves[i].Timestamp)*1000, w.Timestamp.UnixMilli())
		}
	})

	t.Run("failed_load_keeps_list", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{account}, nil)
		contract.On("ReadAllWaves", mock.Anything).
			Return(nil, uint64(0), fmt.Errorf("connection refused"))

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		require.NotPanics(t, func() {
			svc.DetectAndLoad(context.Background())
		})
		require.True(t, svc.GetSession(context.Background()).Connected)
		require.Empty(t, svc.ListWaves(context.Background()))
	})

	t.Run("failed_account_lookup", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		wallet.On("GetAuthorizedAccounts", mock.Anything).
			Return(nil, fmt.Errorf("wallet locked"))

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		svc.DetectAndLoad(context.Background())
		require.False(t, svc.GetSession(context.Background()).Connected)
	})
}

func TestLiveWaves(t *testing.T) {
	wallet, contract := &mockedWallet{}, &mockedContract{}
	sub := newFakeSubscription()
	wallet.On("IsPresent").Return(true)
	wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{account}, nil)
	wallet.On("Close").Return()
	contract.On("ReadAllWaves", mock.Anything).Return(rawWaves, uint64(10), nil)
	contract.On("SubscribeNewWaves", mock.Anything, mock.MatchedBy(func(from *uint64) bool {
		return from != nil && *from == 11
	})).Return(sub, nil)
	contract.On("Close").Return()

	svc := application.NewService(gasLimit, 0, wallet, contract, nil)
	err := svc.Start()
	require.NoError(t, err)
	contract.AssertCalled(t, "ReadAllWaves", mock.Anything)
	contract.AssertNumberOfCalls(t, "SubscribeNewWaves", 1)

	events := svc.GetWaveEventsChannel(context.Background())

	live := []ports.RawWave{
		{Waver: "0x333", Message: "live", Timestamp: 1700000200},
		// Same wave twice: the list keeps both.
		{Waver: "0x333", Message: "live", Timestamp: 1700000200},
	}
	for i, raw := range live {
		contract.emit(raw)

		waves := svc.ListWaves(context.Background())
		require.Len(t, waves, len(rawWaves)+i+1)
		tail := waves[len(waves)-1]
		require.Equal(t, raw.Waver, tail.Address)
		require.Equal(t, raw.Message, tail.Message)

		select {
		case wave := <-events:
			require.Equal(t, tail, wave)
		case <-time.After(time.Second):
			t.Fatal("expected live wave on events channel")
		}
	}

	svc.Stop()
	svc.Stop()

	_, ok := <-events
	require.False(t, ok)
	_, ok = <-sub.Err()
	require.False(t, ok)
	require.False(t, svc.GetSession(context.Background()).Subscribed)
	contract.AssertExpectations(t)
	contract.AssertNumberOfCalls(t, "Close", 1)
	wallet.AssertNumberOfCalls(t, "Close", 1)
}

func TestSubscriptionFailure(t *testing.T) {
	wallet, contract := &mockedWallet{}, &mockedContract{}
	sub := newFakeSubscription()
	wallet.On("IsPresent").Return(true)
	wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{}, nil)
	wallet.On("Close").Return()
	contract.On("SubscribeNewWaves", mock.Anything, (*uint64)(nil)).Return(sub, nil)
	contract.On("Close").Return()

	svc := application.NewService(gasLimit, 0, wallet, contract, nil)
	err := svc.Start()
	require.NoError(t, err)
	require.True(t, svc.GetSession(context.Background()).Subscribed)

	sub.fail(fmt.Errorf("connection reset"))
	require.Eventually(t, func() bool {
		return !svc.GetSession(context.Background()).Subscribed
	}, time.Second, 10*time.Millisecond)

	require.NotPanics(t, svc.Stop)
	contract.AssertExpectations(t)
}

func TestSubscribeFromHeadWithoutBulkLoad(t *testing.T) {
	wallet, contract := &mockedWallet{}, &mockedContract{}
	sub := newFakeSubscription()
	wallet.On("IsPresent").Return(true)
	wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{}, nil)
	wallet.On("Close").Return()
	contract.On("SubscribeNewWaves", mock.Anything, (*uint64)(nil)).Return(sub, nil)
	contract.On("Close").Return()

	svc := application.NewService(gasLimit, 0, wallet, contract, nil)
	err := svc.Start()
	require.NoError(t, err)
	contract.AssertNumberOfCalls(t, "SubscribeNewWaves", 1)
	contract.AssertNotCalled(t, "ReadAllWaves", mock.Anything)

	contract.emit(ports.RawWave{Waver: "0x1", Message: "hi", Timestamp: 1})
	require.Len(t, svc.ListWaves(context.Background()), 1)

	svc.Stop()
	contract.AssertExpectations(t)
}

func TestStatusReporter(t *testing.T) {
	wallet, contract, scheduler := &mockedWallet{}, &mockedContract{}, &mockedScheduler{}
	wallet.On("IsPresent").Return(false)
	wallet.On("Close").Return()
	contract.On("Close").Return()
	contract.On("BlockNumber", mock.Anything).Return(uint64(42), nil)
	scheduler.On("ScheduleTask", int64(60), false, mock.Anything).Return(nil)
	scheduler.On("Start").Return()
	scheduler.On("Stop").Return()

	svc := application.NewService(gasLimit, 60, wallet, contract, scheduler)
	err := svc.Start()
	require.NoError(t, err)

	task := scheduler.Calls[0].Arguments.Get(2).(func())
	require.NotPanics(t, task)
	contract.AssertCalled(t, "BlockNumber", mock.Anything)

	svc.Stop()
	scheduler.AssertExpectations(t)
}

func TestConnect(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		wallet.On("GetAuthorizedAccounts", mock.Anything).Return([]string{}, nil)
		wallet.On("RequestAccountAccess", mock.Anything).Return([]string{account}, nil)

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		svc.DetectAndLoad(context.Background())
		require.False(t, svc.GetSession(context.Background()).Connected)

		address, err := svc.Connect(context.Background())
		require.NoError(t, err)
		require.Equal(t, account, address)

		session := svc.GetSession(context.Background())
		require.True(t, session.Connected)
		require.Equal(t, account, session.Address)

		// Connecting never triggers a bulk load.
		contract.AssertNotCalled(t, "ReadAllWaves", mock.Anything)
		require.Empty(t, svc.ListWaves(context.Background()))
	})

	t.Run("invalid", func(t *testing.T) {
		testCases := []struct {
			description string
			present     bool
			accounts    []string
			err         error
			expectedErr error
		}{
			{
				description: "wallet unavailable",
				present:     false,
				expectedErr: domain.ErrWalletUnavailable,
			},
			{
				description: "user rejected the request",
				present:     true,
				err:         fmt.Errorf("user rejected the request"),
				expectedErr: domain.ErrAuthorizationRejected,
			},
			{
				description: "no account granted",
				present:     true,
				accounts:    []string{},
				expectedErr: domain.ErrAuthorizationRejected,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.description, func(t *testing.T) {
				wallet, contract := &mockedWallet{}, &mockedContract{}
				wallet.On("IsPresent").Return(tc.present)
				wallet.On("RequestAccountAccess", mock.Anything).Return(tc.accounts, tc.err)

				svc := application.NewService(gasLimit, 0, wallet, contract, nil)
				address, err := svc.Connect(context.Background())
				require.ErrorIs(t, err, tc.expectedErr)
				require.Empty(t, address)
				require.False(t, svc.GetSession(context.Background()).Connected)
			})
		}
	})
}

func TestSubmitWave(t *testing.T) {
	t.Run("empty_message_is_sent", func(t *testing.T) {
		wallet, contract := connectedMocks(t)
		tx := &fakePendingTx{
			hash:    "0xtx",
			receipt: &ports.Receipt{TxHash: "0xtx", BlockNumber: 12, Succeeded: true},
		}
		contract.On("SubmitWave", mock.Anything, auth, "", gasLimit).Return(tx, nil)
		contract.On("ReadTotalWaveCount", mock.Anything).Return(uint64(4), nil)

		svc := connectedService(t, wallet, contract)
		submission, err := svc.SubmitWave(context.Background(), "")
		require.NoError(t, err)
		require.NotNil(t, submission)
		require.Equal(t, domain.SubmissionMined, submission.Status)
		require.Equal(t, "0xtx", submission.TxHash)
		require.Equal(t, uint64(12), submission.BlockNumber)
		contract.AssertCalled(t, "SubmitWave", mock.Anything, auth, "", gasLimit)

		info, err := svc.ListSubmissions(context.Background())
		require.NoError(t, err)
		require.Equal(t, domain.SubmitIdle, info.State)
		require.Len(t, info.Submissions, 1)

		got, err := svc.GetSubmission(context.Background(), submission.Id)
		require.NoError(t, err)
		require.Equal(t, *submission, *got)

		_, err = svc.GetSubmission(context.Background(), "unknown")
		require.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})

	t.Run("overlapping_submissions", func(t *testing.T) {
		wallet, contract := connectedMocks(t)
		waiting := make(chan string, 2)
		release := make(chan struct{})
		for _, msg := range []string{"one", "two"} {
			tx := &fakePendingTx{
				hash:    "0x" + msg,
				receipt: &ports.Receipt{TxHash: "0x" + msg, BlockNumber: 1, Succeeded: true},
				waiting: waiting,
				release: release,
			}
			contract.On("SubmitWave", mock.Anything, auth, msg, gasLimit).Return(tx, nil)
		}
		contract.On("ReadTotalWaveCount", mock.Anything).Return(uint64(2), nil)

		svc := connectedService(t, wallet, contract)

		errs := make(chan error, 2)
		for _, msg := range []string{"one", "two"} {
			go func(msg string) {
				_, err := svc.SubmitWave(context.Background(), msg)
				errs <- err
			}(msg)
		}

		awaited := map[string]bool{}
		for i := 0; i < 2; i++ {
			select {
			case hash := <-waiting:
				awaited[hash] = true
			case <-time.After(2 * time.Second):
				t.Fatal("expected both submissions to await confirmation")
			}
		}
		require.True(t, awaited["0xone"])
		require.True(t, awaited["0xtwo"])

		info, err := svc.ListSubmissions(context.Background())
		require.NoError(t, err)
		require.Equal(t, domain.SubmitPending, info.State)
		require.Equal(t, 2, info.InFlight)

		close(release)
		for i := 0; i < 2; i++ {
			require.NoError(t, <-errs)
		}

		info, err = svc.ListSubmissions(context.Background())
		require.NoError(t, err)
		require.Equal(t, domain.SubmitIdle, info.State)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Run("wallet_unavailable", func(t *testing.T) {
			wallet, contract := &mockedWallet{}, &mockedContract{}
			wallet.On("IsPresent").Return(false)

			svc := application.NewService(gasLimit, 0, wallet, contract, nil)
			_, err := svc.SubmitWave(context.Background(), "hi")
			require.ErrorIs(t, err, domain.ErrWalletUnavailable)
			contract.AssertNotCalled(t, "SubmitWave", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})

		t.Run("not_connected", func(t *testing.T) {
			wallet, contract := &mockedWallet{}, &mockedContract{}
			wallet.On("IsPresent").Return(true)

			svc := application.NewService(gasLimit, 0, wallet, contract, nil)
			_, err := svc.SubmitWave(context.Background(), "hi")
			require.ErrorIs(t, err, domain.ErrSessionNotConnected)
		})

		t.Run("send_failure", func(t *testing.T) {
			wallet, contract := connectedMocks(t)
			contract.On("SubmitWave", mock.Anything, auth, "hi", gasLimit).
				Return(nil, fmt.Errorf("insufficient funds"))

			svc := connectedService(t, wallet, contract)
			_, err := svc.SubmitWave(context.Background(), "hi")
			require.Error(t, err)

			info, err := svc.ListSubmissions(context.Background())
			require.NoError(t, err)
			require.Len(t, info.Submissions, 1)
			require.Equal(t, domain.SubmissionFailed, info.Submissions[0].Status)
			require.Equal(t, domain.SubmitIdle, info.State)
		})

		t.Run("reverted", func(t *testing.T) {
			wallet, contract := connectedMocks(t)
			tx := &fakePendingTx{
				hash:    "0xtx",
				receipt: &ports.Receipt{TxHash: "0xtx", BlockNumber: 3, Succeeded: false},
			}
			contract.On("SubmitWave", mock.Anything, auth, "hi", gasLimit).Return(tx, nil)

			svc := connectedService(t, wallet, contract)
			_, err := svc.SubmitWave(context.Background(), "hi")
			require.ErrorIs(t, err, domain.ErrTransactionFailed)

			info, err := svc.ListSubmissions(context.Background())
			require.NoError(t, err)
			require.Equal(t, domain.SubmissionFailed, info.Submissions[0].Status)
			require.Equal(t, "0xtx", info.Submissions[0].TxHash)
		})

		t.Run("confirmation_failure", func(t *testing.T) {
			wallet, contract := connectedMocks(t)
			tx := &fakePendingTx{hash: "0xtx", err: errors.New("connection lost")}
			contract.On("SubmitWave", mock.Anything, auth, "hi", gasLimit).Return(tx, nil)

			svc := connectedService(t, wallet, contract)
			_, err := svc.SubmitWave(context.Background(), "hi")
			require.Error(t, err)
			require.NotErrorIs(t, err, domain.ErrTransactionFailed)
		})
	})
}

func TestGetTotalWaves(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		contract.On("ReadTotalWaveCount", mock.Anything).Return(uint64(3), nil).Once()
		contract.On("ReadTotalWaveCount", mock.Anything).Return(uint64(4), nil).Once()

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)

		count, err := svc.GetTotalWaves(context.Background())
		require.NoError(t, err)
		require.Equal(t, uint64(3), count)

		// The count is never cached.
		count, err = svc.GetTotalWaves(context.Background())
		require.NoError(t, err)
		require.Equal(t, uint64(4), count)
		contract.AssertNumberOfCalls(t, "ReadTotalWaveCount", 2)
	})

	t.Run("invalid", func(t *testing.T) {
		wallet, contract := &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(false)

		svc := application.NewService(gasLimit, 0, wallet, contract, nil)
		_, err := svc.GetTotalWaves(context.Background())
		require.ErrorIs(t, err, domain.ErrWalletUnavailable)

		wallet, contract = &mockedWallet{}, &mockedContract{}
		wallet.On("IsPresent").Return(true)
		contract.On("ReadTotalWaveCount", mock.Anything).
			Return(uint64(0), fmt.Errorf("call reverted"))

		svc = application.NewService(gasLimit, 0, wallet, contract, nil)
		_, err = svc.GetTotalWaves(context.Background())
		require.Error(t, err)
	})
}

func connectedMocks(t *testing.T) (*mockedWallet, *mockedContract) {
	t.Helper()

	wallet, contract := &mockedWallet{}, &mockedContract{}
	wallet.On("IsPresent").Return(true)
	wallet.On("RequestAccountAccess", mock.Anything).Return([]string{account}, nil)
	wallet.On("Transactor", mock.Anything, account).Return(auth, nil)
	return wallet, contract
}

func connectedService(
	t *testing.T, wallet *mockedWallet, contract *mockedContract,
) application.Service {
	t.Helper()

	svc := application.NewService(gasLimit, 0, wallet, contract, nil)
	_, err := svc.Connect(context.Background())
	require.NoError(t, err)
	return svc
}
