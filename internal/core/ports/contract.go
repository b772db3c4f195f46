package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// RawWave is a wave as returned by the contract, before normalization.
// Timestamp is the block time in seconds.
type RawWave struct {
	Waver     string
	Message   string
	Timestamp uint64
}

type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}

type PendingTx interface {
	Hash() string
	// AwaitConfirmation blocks until the tx is mined or ctx is done.
	AwaitConfirmation(ctx context.Context) (*Receipt, error)
}

type Subscription interface {
	Unsubscribe()
	// Err is closed when the subscription terminates. A value is sent if it
	// ended because of a failure.
	Err() <-chan error
}

// NewWaveHandler is invoked once per NewWave event, in log order.
type NewWaveHandler func(wave RawWave)

type ContractClient interface {
	// ReadAllWaves returns every wave stored in the contract along with the
	// block height the read was pinned to.
	ReadAllWaves(ctx context.Context) ([]RawWave, uint64, error)
	ReadTotalWaveCount(ctx context.Context) (uint64, error)
	SubmitWave(
		ctx context.Context, auth *bind.TransactOpts, message string, gasLimit uint64,
	) (PendingTx, error)
	// SubscribeNewWaves delivers NewWave events to handler, starting from
	// fromBlock when given or from the chain head otherwise.
	SubscribeNewWaves(
		ctx context.Context, fromBlock *uint64, handler NewWaveHandler,
	) (Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}
