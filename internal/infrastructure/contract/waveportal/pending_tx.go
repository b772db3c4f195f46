package waveportal

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/waveportal/waved/internal/core/ports"
)

type pendingTx struct {
	backend bind.DeployBackend
	tx      *types.Transaction
}

func (p *pendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

func (p *pendingTx) AwaitConfirmation(ctx context.Context) (*ports.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return nil, err
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}
	return &ports.Receipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: blockNumber,
		GasUsed:     receipt.GasUsed,
		Succeeded:   receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}
