package waveportal

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodGetAllWaves   = "getAllWaves"
	methodGetTotalWaves = "getTotalWaves"
	methodWave          = "wave"
	eventNewWave        = "NewWave"
)

// Hardhat artifact of the deployed contract.
//
//go:embed WavePortal.json
var wavePortalArtifact []byte

type artifact struct {
	ContractName string          `json:"contractName"`
	Abi          json.RawMessage `json:"abi"`
}

func parseABI(content []byte) (abi.ABI, error) {
	var a artifact
	if err := json.Unmarshal(content, &a); err != nil {
		return abi.ABI{}, fmt.Errorf("invalid contract artifact: %s", err)
	}
	if len(a.Abi) <= 0 {
		return abi.ABI{}, fmt.Errorf("contract artifact %q has no abi", a.ContractName)
	}

	parsed, err := abi.JSON(bytes.NewReader(a.Abi))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid abi for %q: %s", a.ContractName, err)
	}

	for _, method := range []string{methodGetAllWaves, methodGetTotalWaves, methodWave} {
		if _, ok := parsed.Methods[method]; !ok {
			return abi.ABI{}, fmt.Errorf("abi for %q is missing method %s", a.ContractName, method)
		}
	}
	if _, ok := parsed.Events[eventNewWave]; !ok {
		return abi.ABI{}, fmt.Errorf("abi for %q is missing event %s", a.ContractName, eventNewWave)
	}
	return parsed, nil
}
