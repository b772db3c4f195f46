package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Wave is a message left on the portal by an account.
type Wave struct {
	Address   string
	Message   string
	Timestamp time.Time
}

// NewWave converts a raw on-chain record, whose timestamp is expressed in
// seconds, into a Wave.
func NewWave(address string, timestamp uint64, message string) Wave {
	return Wave{
		Address:   address,
		Message:   message,
		Timestamp: time.UnixMilli(int64(timestamp) * 1000).UTC(),
	}
}

// Key returns the composite (sender, timestamp, message hash) identifying
// the wave. Two waves with the same key are indistinguishable on chain.
func (w Wave) Key() string {
	h := sha256.Sum256([]byte(w.Message))
	return w.Address + ":" + w.Timestamp.Format(time.RFC3339) + ":" + hex.EncodeToString(h[:])
}
