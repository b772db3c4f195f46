package privkeywallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/waveportal/waved/internal/core/domain"
	"github.com/waveportal/waved/internal/core/ports"
)

type service struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int

	lock       *sync.RWMutex
	authorized bool
}

// NewService returns a wallet holding a single hex encoded private key.
// Access granted to the account lasts for the life of the process.
func NewService(privateKey string, chainID int64) (ports.WalletAdapter, error) {
	if len(privateKey) <= 0 {
		return nil, fmt.Errorf("missing private key")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %s", err)
	}

	return &service{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
		lock:    &sync.RWMutex{},
	}, nil
}

func (s *service) IsPresent() bool {
	return true
}

func (s *service) GetAuthorizedAccounts(_ context.Context) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if !s.authorized {
		return []string{}, nil
	}
	return []string{s.address.Hex()}, nil
}

func (s *service) RequestAccountAccess(_ context.Context) ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.authorized = true
	return []string{s.address.Hex()}, nil
}

func (s *service) Transactor(
	_ context.Context, account string,
) (*bind.TransactOpts, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if !s.authorized {
		return nil, fmt.Errorf("%w: account %s", domain.ErrAuthorizationRejected, account)
	}
	if !common.IsHexAddress(account) || common.HexToAddress(account) != s.address {
		return nil, fmt.Errorf("unknown account %s", account)
	}
	return bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
}

func (s *service) Close() {}
