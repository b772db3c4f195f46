package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// WalletAdapter is the connection to the user's wallet provider.
type WalletAdapter interface {
	// IsPresent reports whether a wallet provider is available at all.
	IsPresent() bool
	// GetAuthorizedAccounts returns the accounts already authorized for this
	// app, without prompting the user. The list may be empty.
	GetAuthorizedAccounts(ctx context.Context) ([]string, error)
	// RequestAccountAccess asks the user to authorize the app. An error is
	// returned if the user rejects the request.
	RequestAccountAccess(ctx context.Context) ([]string, error)
	// Transactor returns the signer used to send transactions from account.
	Transactor(ctx context.Context, account string) (*bind.TransactOpts, error)
	Close()
}
