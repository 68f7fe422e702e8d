package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(symbol|strategy_id|date|seq)
// The per-run sequence number disambiguates multiple trades logged for the
// same symbol and date. Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	symbol string,
	strategyID string,
	date string,
	seq int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		symbol,
		strategyID,
		date,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
