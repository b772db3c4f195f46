package nowallet

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/waveportal/waved/internal/core/domain"
	"github.com/waveportal/waved/internal/core/ports"
)

// service stands for a host without any wallet installed.
type service struct{}

func NewService() ports.WalletAdapter {
	return service{}
}

func (service) IsPresent() bool {
	return false
}

func (service) GetAuthorizedAccounts(context.Context) ([]string, error) {
	return nil, domain.ErrWalletUnavailable
}

func (service) RequestAccountAccess(context.Context) ([]string, error) {
	return nil, domain.ErrWalletUnavailable
}

func (service) Transactor(context.Context, string) (*bind.TransactOpts, error) {
	return nil, domain.ErrWalletUnavailable
}

func (service) Close() {}
