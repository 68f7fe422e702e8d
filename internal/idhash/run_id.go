package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a short, human-pasteable identifier for one
// backtest or search run. Formula: base58(SHA256(strategy_id|started_at)[:8]).
// Used in report filenames and log lines.
func ComputeRunID(strategyID string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%d", strategyID, startedAtMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:8])
}
