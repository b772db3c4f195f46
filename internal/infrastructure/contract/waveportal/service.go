package waveportal

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/ports"
)

type backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

type service struct {
	backend backend
	portal  *wavePortal
}

// NewService dials the node at rpcURL and binds the contract deployed at
// contractAddress. Live events need a websocket or ipc endpoint.
func NewService(
	ctx context.Context, rpcURL, contractAddress string,
) (ports.ContractClient, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %s", contractAddress)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc %s: %s", rpcURL, err)
	}
	log.Debugf("connected to rpc %s", rpcURL)

	svc, err := newService(client, common.HexToAddress(contractAddress))
	if err != nil {
		client.Close()
		return nil, err
	}
	return svc, nil
}

func newService(b backend, address common.Address) (*service, error) {
	portal, err := bindWavePortal(address, b, b, b)
	if err != nil {
		return nil, err
	}
	return &service{b, portal}, nil
}

func (s *service) ReadAllWaves(ctx context.Context) ([]ports.RawWave, uint64, error) {
	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get chain head: %w", err)
	}

	waves, err := s.portal.getAllWaves(&bind.CallOpts{
		Context:     ctx,
		BlockNumber: new(big.Int).SetUint64(head),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to call %s: %w", methodGetAllWaves, err)
	}
	return waves, head, nil
}

func (s *service) ReadTotalWaveCount(ctx context.Context) (uint64, error) {
	count, err := s.portal.getTotalWaves(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, fmt.Errorf("failed to call %s: %w", methodGetTotalWaves, err)
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("total wave count %s overflows uint64", count)
	}
	return count.Uint64(), nil
}

func (s *service) SubmitWave(
	ctx context.Context, auth *bind.TransactOpts, message string, gasLimit uint64,
) (ports.PendingTx, error) {
	if auth == nil {
		return nil, fmt.Errorf("missing transaction signer")
	}

	opts := *auth
	opts.Context = ctx
	opts.GasLimit = gasLimit

	tx, err := s.portal.wave(&opts, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s tx: %w", methodWave, err)
	}
	return &pendingTx{s.backend, tx}, nil
}

func (s *service) SubscribeNewWaves(
	ctx context.Context, fromBlock *uint64, handler ports.NewWaveHandler,
) (ports.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("missing new wave handler")
	}

	logs, sub, err := s.portal.watchNewWave(&bind.WatchOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s events: %w", eventNewWave, err)
	}

	// When resuming from fromBlock, logs mined up to head are replayed with a
	// one-shot filter query and only later ones are taken from the live feed.
	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}

	var (
		replayed []ports.RawWave
		cutoff   *uint64
	)
	if fromBlock != nil {
		cutoff = &head
		if *fromBlock <= head {
			replayed, err = s.replayNewWaves(ctx, *fromBlock, head)
			if err != nil {
				sub.Unsubscribe()
				return nil, err
			}
		}
	}

	return newSubscription(sub, logs, replayed, cutoff, s.parseNewWave, handler), nil
}

func (s *service) BlockNumber(ctx context.Context) (uint64, error) {
	return s.backend.BlockNumber(ctx)
}

func (s *service) Close() {
	s.backend.Close()
}

func (s *service) replayNewWaves(
	ctx context.Context, fromBlock, toBlock uint64,
) ([]ports.RawWave, error) {
	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.portal.address},
		Topics:    [][]common.Hash{{s.portal.abi.Events[eventNewWave].ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replay %s events: %w", eventNewWave, err)
	}

	waves := make([]ports.RawWave, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		wave, err := s.parseNewWave(l)
		if err != nil {
			log.WithError(err).Warnf("skipping malformed %s log", eventNewWave)
			continue
		}
		waves = append(waves, wave)
	}
	log.Debugf("replayed %d waves from block %d to %d", len(waves), fromBlock, toBlock)
	return waves, nil
}

func (s *service) parseNewWave(l types.Log) (ports.RawWave, error) {
	ev, err := s.portal.parseNewWave(l)
	if err != nil {
		return ports.RawWave{}, err
	}
	return ev.toRawWave()
}
