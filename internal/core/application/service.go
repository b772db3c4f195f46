package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/domain"
	"github.com/waveportal/waved/internal/core/ports"
)

const (
	waveEventsBufferSize = 64
	statusTimeout        = 10 * time.Second
)

type service struct {
	gasLimit       uint64
	statusInterval int64

	wallet    ports.WalletAdapter
	contract  ports.ContractClient
	scheduler ports.SchedulerService

	session     *domain.Session
	waves       *domain.WaveList
	submissions *domain.SubmissionTracker

	lock      *sync.RWMutex
	watermark *uint64
	sub       ports.Subscription
	subDone   chan struct{}
	subActive bool
	eventsCh  chan domain.Wave
	stopped   bool
}

func NewService(
	gasLimit uint64, statusInterval int64,
	wallet ports.WalletAdapter, contract ports.ContractClient,
	scheduler ports.SchedulerService,
) Service {
	return &service{
		gasLimit:       gasLimit,
		statusInterval: statusInterval,
		wallet:         wallet,
		contract:       contract,
		scheduler:      scheduler,
		session:        domain.NewSession(),
		waves:          domain.NewWaveList(),
		submissions:    domain.NewSubmissionTracker(),
		lock:           &sync.RWMutex{},
		eventsCh:       make(chan domain.Wave, waveEventsBufferSize),
	}
}

func (s *service) Start() error {
	log.Debug("starting app service")
	ctx := context.Background()

	s.DetectAndLoad(ctx)

	if s.wallet.IsPresent() {
		if err := s.subscribeToNewWaves(ctx); err != nil {
			log.WithError(err).Warn("failed to subscribe to new waves")
		}
	}

	if s.scheduler != nil && s.statusInterval > 0 {
		if err := s.scheduler.ScheduleTask(
			s.statusInterval, false, s.reportStatus,
		); err != nil {
			return err
		}
		s.scheduler.Start()
	}
	return nil
}

func (s *service) Stop() {
	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return
	}
	s.stopped = true
	sub, subDone := s.sub, s.subDone
	s.sub, s.subDone = nil, nil
	s.lock.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		<-subDone
		log.Debug("released new waves subscription")
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("stopped scheduler")
	}
	s.contract.Close()
	log.Debug("closed connection to contract")
	s.wallet.Close()
	log.Debug("closed connection to wallet")

	s.lock.Lock()
	close(s.eventsCh)
	s.lock.Unlock()
}

func (s *service) DetectAndLoad(ctx context.Context) {
	if !s.wallet.IsPresent() {
		log.Warn("wallet unavailable, make sure you have a wallet configured")
		return
	}
	log.Debug("wallet found")

	accounts, err := s.wallet.GetAuthorizedAccounts(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get authorized accounts")
		return
	}
	if len(accounts) <= 0 {
		log.Info("no authorized account found")
		return
	}

	account := accounts[0]
	s.session.Connect(account)
	log.Infof("found an authorized account: %s", account)

	s.bulkLoad(ctx)
}

func (s *service) Connect(ctx context.Context) (string, error) {
	if !s.wallet.IsPresent() {
		log.Warn("wallet unavailable, cannot connect")
		return "", domain.ErrWalletUnavailable
	}

	accounts, err := s.wallet.RequestAccountAccess(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get account access")
		return "", fmt.Errorf("%w: %s", domain.ErrAuthorizationRejected, err)
	}
	if len(accounts) <= 0 {
		log.Warn("wallet granted access to no account")
		return "", fmt.Errorf("%w: no account granted", domain.ErrAuthorizationRejected)
	}

	account := accounts[0]
	s.session.Connect(account)
	log.Infof("connected account: %s", account)
	return account, nil
}

func (s *service) SubmitWave(
	ctx context.Context, message string,
) (*domain.Submission, error) {
	if !s.wallet.IsPresent() {
		log.Warn("wallet unavailable, cannot submit wave")
		return nil, domain.ErrWalletUnavailable
	}
	account, ok := s.session.ConnectedAddress()
	if !ok {
		return nil, domain.ErrSessionNotConnected
	}

	auth, err := s.wallet.Transactor(ctx, account)
	if err != nil {
		log.WithError(err).Warn("failed to get transaction signer")
		return nil, fmt.Errorf("failed to get transaction signer: %w", err)
	}

	submission := s.submissions.Start(message)

	tx, err := s.contract.SubmitWave(ctx, auth, message, s.gasLimit)
	if err != nil {
		return nil, s.failSubmission(
			submission.Id, fmt.Errorf("failed to submit wave: %w", err),
		)
	}
	// nolint
	s.submissions.SetTxHash(submission.Id, tx.Hash())
	log.Infof("mining tx %s...", tx.Hash())

	receipt, err := tx.AwaitConfirmation(ctx)
	if err != nil {
		return nil, s.failSubmission(
			submission.Id,
			fmt.Errorf("failed to wait for tx %s to be mined: %w", tx.Hash(), err),
		)
	}
	if !receipt.Succeeded {
		return nil, s.failSubmission(
			submission.Id,
			fmt.Errorf("%w: tx %s reverted", domain.ErrTransactionFailed, tx.Hash()),
		)
	}
	log.Infof(
		"mined tx %s in block %d, gas used %d",
		receipt.TxHash, receipt.BlockNumber, receipt.GasUsed,
	)

	mined, err := s.submissions.Mined(submission.Id, receipt.BlockNumber)
	if err != nil {
		return nil, err
	}

	if count, err := s.contract.ReadTotalWaveCount(ctx); err != nil {
		log.WithError(err).Warn("failed to retrieve total wave count")
	} else {
		log.Debugf("retrieved total wave count: %d", count)
	}

	return &mined, nil
}

func (s *service) ListSubmissions(_ context.Context) (*SubmissionsInfo, error) {
	state, inFlight := s.submissions.State()
	return &SubmissionsInfo{
		State:       state,
		InFlight:    inFlight,
		Submissions: s.submissions.List(),
	}, nil
}

func (s *service) GetSubmission(
	_ context.Context, id string,
) (*domain.Submission, error) {
	submission, err := s.submissions.Get(id)
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *service) GetTotalWaves(ctx context.Context) (uint64, error) {
	if !s.wallet.IsPresent() {
		log.Warn("wallet unavailable, cannot read total waves")
		return 0, domain.ErrWalletUnavailable
	}

	count, err := s.contract.ReadTotalWaveCount(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to retrieve total wave count")
		return 0, fmt.Errorf("failed to retrieve total wave count: %w", err)
	}
	log.Debugf("retrieved total wave count: %d", count)
	return count, nil
}

func (s *service) GetSession(_ context.Context) SessionInfo {
	address, connected := s.session.ConnectedAddress()
	return SessionInfo{
		WalletPresent: s.wallet.IsPresent(),
		Connected:     connected,
		Address:       address,
		Subscribed:    s.isSubscribed(),
	}
}

func (s *service) ListWaves(_ context.Context) []domain.Wave {
	return s.waves.Snapshot()
}

func (s *service) GetWaveEventsChannel(_ context.Context) <-chan domain.Wave {
	return s.eventsCh
}

func (s *service) bulkLoad(ctx context.Context) {
	rawWaves, blockNumber, err := s.contract.ReadAllWaves(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to load waves")
		return
	}

	waves := make([]domain.Wave, 0, len(rawWaves))
	for _, w := range rawWaves {
		waves = append(waves, domain.NewWave(w.Waver, w.Timestamp, w.Message))
	}
	s.waves.ReplaceAll(waves)

	s.lock.Lock()
	s.watermark = &blockNumber
	s.lock.Unlock()

	log.Debugf("loaded %d waves at block %d", len(waves), blockNumber)
}

func (s *service) subscribeToNewWaves(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped || s.sub != nil {
		return nil
	}

	var fromBlock *uint64
	if s.watermark != nil {
		next := *s.watermark + 1
		fromBlock = &next
	}

	sub, err := s.contract.SubscribeNewWaves(ctx, fromBlock, s.onNewWave)
	if err != nil {
		return err
	}

	s.sub = sub
	s.subDone = make(chan struct{})
	s.subActive = true
	go s.listenForSubscriptionErrors(sub, s.subDone)

	if fromBlock != nil {
		log.Debugf("subscribed to new waves from block %d", *fromBlock)
	} else {
		log.Debug("subscribed to new waves from chain head")
	}
	return nil
}

func (s *service) listenForSubscriptionErrors(
	sub ports.Subscription, done chan struct{},
) {
	defer close(done)

	for err := range sub.Err() {
		if err != nil {
			log.WithError(err).Warn("new waves subscription failed")
		}
	}

	// The feed is gone, either released by Stop or dropped by the node.
	s.lock.Lock()
	s.subActive = false
	s.lock.Unlock()
}

func (s *service) onNewWave(raw ports.RawWave) {
	wave := domain.NewWave(raw.Waver, raw.Timestamp, raw.Message)
	count := s.waves.Append(wave)
	log.Debugf("new wave from %s, %d waves in list", wave.Address, count)

	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.stopped {
		return
	}
	select {
	case s.eventsCh <- wave:
	default:
		log.Warn("wave events channel is full, dropping live update")
	}
}

func (s *service) failSubmission(id string, err error) error {
	log.WithError(err).Warn("failed to submit wave")
	// nolint
	s.submissions.Fail(id, err)
	return err
}

func (s *service) reportStatus() {
	address, connected := s.session.ConnectedAddress()
	if !connected {
		address = "none"
	}
	state, inFlight := s.submissions.State()

	entry := log.WithFields(log.Fields{
		"account":    address,
		"waves":      s.waves.Len(),
		"submit":     state.String(),
		"in_flight":  inFlight,
		"wallet":     s.wallet.IsPresent(),
		"subscribed": s.isSubscribed(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	if height, err := s.contract.BlockNumber(ctx); err != nil {
		entry = entry.WithError(err)
	} else {
		entry = entry.WithField("block", height)
	}
	entry.Info("session status")
}

func (s *service) isSubscribed() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.subActive
}
