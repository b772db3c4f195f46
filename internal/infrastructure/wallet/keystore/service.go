package keystorewallet

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/domain"
	"github.com/waveportal/waved/internal/core/ports"
)

type service struct {
	dir      string
	chainID  *big.Int
	ks       *keystore.KeyStore
	unlocker ports.Unlocker
	store    *authorizationStore

	lock     *sync.Mutex
	unlocked map[common.Address]struct{}
}

// NewService opens the encrypted keystore in keystoreDir. Granted accounts
// are remembered in a store under datadir, kept in memory when datadir is
// empty.
func NewService(
	keystoreDir, datadir string, chainID int64, unlocker ports.Unlocker,
	logger badger.Logger,
) (ports.WalletAdapter, error) {
	if len(keystoreDir) <= 0 {
		return nil, fmt.Errorf("missing keystore dir")
	}
	if unlocker == nil {
		return nil, fmt.Errorf("missing unlocker")
	}

	store, err := newAuthorizationStore(datadir, logger)
	if err != nil {
		return nil, err
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	return newService(keystoreDir, chainID, ks, unlocker, store), nil
}

func newService(
	dir string, chainID int64, ks *keystore.KeyStore,
	unlocker ports.Unlocker, store *authorizationStore,
) *service {
	return &service{
		dir:      dir,
		chainID:  big.NewInt(chainID),
		ks:       ks,
		unlocker: unlocker,
		store:    store,
		lock:     &sync.Mutex{},
		unlocked: make(map[common.Address]struct{}),
	}
}

func (s *service) IsPresent() bool {
	if _, err := os.Stat(s.dir); err != nil {
		return false
	}
	return len(s.ks.Accounts()) > 0
}

func (s *service) GetAuthorizedAccounts(_ context.Context) ([]string, error) {
	if !s.IsPresent() {
		return nil, domain.ErrWalletUnavailable
	}

	auths, err := s.store.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list authorizations: %w", err)
	}

	accounts := make([]string, 0, len(auths))
	for _, auth := range auths {
		if !common.IsHexAddress(auth.Account) {
			continue
		}
		// Keys removed from the keystore are no longer usable.
		if !s.ks.HasAddress(common.HexToAddress(auth.Account)) {
			continue
		}
		accounts = append(accounts, auth.Account)
	}
	return accounts, nil
}

func (s *service) RequestAccountAccess(ctx context.Context) ([]string, error) {
	if !s.IsPresent() {
		return nil, domain.ErrWalletUnavailable
	}

	account := s.ks.Accounts()[0]
	if err := s.unlock(ctx, account); err != nil {
		return nil, err
	}

	address := account.Address.Hex()
	if err := s.store.add(address); err != nil {
		return nil, fmt.Errorf("failed to store authorization: %w", err)
	}
	log.Debugf("granted access to account %s", address)

	return []string{address}, nil
}

func (s *service) Transactor(
	ctx context.Context, address string,
) (*bind.TransactOpts, error) {
	if !s.IsPresent() {
		return nil, domain.ErrWalletUnavailable
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid account %s", address)
	}

	authorized, err := s.store.isAuthorized(address)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization: %w", err)
	}
	if !authorized {
		return nil, fmt.Errorf("%w: account %s", domain.ErrAuthorizationRejected, address)
	}

	account, err := s.ks.Find(accounts.Account{Address: common.HexToAddress(address)})
	if err != nil {
		return nil, fmt.Errorf("account %s not found in keystore: %w", address, err)
	}
	if err := s.unlock(ctx, account); err != nil {
		return nil, err
	}

	return bind.NewKeyStoreTransactorWithChainID(s.ks, account, s.chainID)
}

func (s *service) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for address := range s.unlocked {
		// nolint
		s.ks.Lock(address)
	}
	s.unlocked = make(map[common.Address]struct{})
	s.store.close()
}

func (s *service) unlock(ctx context.Context, account accounts.Account) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.unlocked[account.Address]; ok {
		return nil
	}

	password, err := s.unlocker.GetPassword(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAuthorizationRejected, err)
	}
	if err := s.ks.Unlock(account, password); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAuthorizationRejected, err)
	}

	s.unlocked[account.Address] = struct{}{}
	return nil
}
