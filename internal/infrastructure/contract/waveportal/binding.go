package waveportal

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/waveportal/waved/internal/core/ports"
)

// waveStruct mirrors the WavePortal.Wave tuple.
type waveStruct struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

type newWaveEvent struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

// wavePortal is a thin typed binding over the contract ABI.
type wavePortal struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

func bindWavePortal(
	address common.Address,
	caller bind.ContractCaller, transactor bind.ContractTransactor,
	filterer bind.ContractFilterer,
) (*wavePortal, error) {
	parsed, err := parseABI(wavePortalArtifact)
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, parsed, caller, transactor, filterer)
	return &wavePortal{parsed, address, contract}, nil
}

func (c *wavePortal) getAllWaves(opts *bind.CallOpts) ([]ports.RawWave, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, methodGetAllWaves); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", methodGetAllWaves, len(out))
	}

	list := *abi.ConvertType(out[0], new([]waveStruct)).(*[]waveStruct)
	waves := make([]ports.RawWave, 0, len(list))
	for _, w := range list {
		timestamp, err := toSeconds(w.Timestamp)
		if err != nil {
			return nil, err
		}
		waves = append(waves, ports.RawWave{
			Waver:     w.Waver.Hex(),
			Message:   w.Message,
			Timestamp: timestamp,
		})
	}
	return waves, nil
}

func (c *wavePortal) getTotalWaves(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, methodGetTotalWaves); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", methodGetTotalWaves, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *wavePortal) wave(opts *bind.TransactOpts, message string) (*types.Transaction, error) {
	return c.contract.Transact(opts, methodWave, message)
}

func (c *wavePortal) watchNewWave(
	opts *bind.WatchOpts,
) (chan types.Log, event.Subscription, error) {
	return c.contract.WatchLogs(opts, eventNewWave)
}

func (c *wavePortal) parseNewWave(log types.Log) (*newWaveEvent, error) {
	ev := new(newWaveEvent)
	if err := c.contract.UnpackLog(ev, eventNewWave, log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

func (e *newWaveEvent) toRawWave() (ports.RawWave, error) {
	timestamp, err := toSeconds(e.Timestamp)
	if err != nil {
		return ports.RawWave{}, err
	}
	return ports.RawWave{
		Waver:     e.From.Hex(),
		Message:   e.Message,
		Timestamp: timestamp,
	}, nil
}

func toSeconds(timestamp *big.Int) (uint64, error) {
	if timestamp == nil || timestamp.Sign() < 0 || !timestamp.IsUint64() {
		return 0, fmt.Errorf("invalid wave timestamp %v", timestamp)
	}
	return timestamp.Uint64(), nil
}
