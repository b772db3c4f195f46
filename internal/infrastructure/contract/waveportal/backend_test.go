package waveportal

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

var contractAddress = common.HexToAddress("0x524FaaDf97c1880eECcf457EaE1c5c8d39830be2")

// fakeBackend answers contract calls with canned outputs and lets tests push
// logs into the live subscription. Methods not overridden panic through the
// nil embedded interface.
type fakeBackend struct {
	bind.ContractBackend

	lock      sync.Mutex
	head      uint64
	outputs   map[string][]byte
	callBlock *big.Int
	filtered  []types.Log
	query     *ethereum.FilterQuery
	liveCh    chan<- types.Log
	closed    bool

	sent []*types.Transaction
	// status of the receipt returned for sent txs, nil while not mined.
	receiptStatus *uint64
}

func newFakeBackend(head uint64) *fakeBackend {
	return &fakeBackend{head: head, outputs: make(map[string][]byte)}
}

func (b *fakeBackend) setOutput(method string, output []byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.outputs[method] = output
}

func (b *fakeBackend) CallContract(
	_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
) ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	parsed, err := parseABI(wavePortalArtifact)
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if len(msg.Data) >= 4 && bytes.Equal(msg.Data[:4], method.ID) {
			b.callBlock = blockNumber
			return b.outputs[name], nil
		}
	}
	return nil, fmt.Errorf("unknown method selector")
}

func (b *fakeBackend) CodeAt(
	context.Context, common.Address, *big.Int,
) ([]byte, error) {
	return []byte{0x1}, nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.head, nil
}

func (b *fakeBackend) FilterLogs(
	_ context.Context, q ethereum.FilterQuery,
) ([]types.Log, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.query = &q
	return b.filtered, nil
}

func (b *fakeBackend) SubscribeFilterLogs(
	_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log,
) (ethereum.Subscription, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.liveCh = ch
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (b *fakeBackend) HeaderByNumber(
	context.Context, *big.Int,
) (*types.Header, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	// No base fee, the binding falls back to legacy txs.
	return &types.Header{Number: new(big.Int).SetUint64(b.head)}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) setReceiptStatus(status uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.receiptStatus = &status
}

func (b *fakeBackend) TransactionReceipt(
	_ context.Context, hash common.Hash,
) (*types.Receipt, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.receiptStatus == nil {
		return nil, ethereum.NotFound
	}
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			return &types.Receipt{
				TxHash:      hash,
				Status:      *b.receiptStatus,
				BlockNumber: new(big.Int).SetUint64(b.head + 1),
				GasUsed:     tx.Gas() / 2,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
}

func (b *fakeBackend) pushLog(l types.Log) {
	b.lock.Lock()
	ch := b.liveCh
	b.lock.Unlock()
	ch <- l
}
