package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"pumpwatch/internal/domain"
)

// ComputeAlertID computes a deterministic alert_id using SHA256.
// Formula: SHA256(mint|kind|triggered_at)
// Returns hex-encoded hash (64 characters).
func ComputeAlertID(mint string, kind domain.AlertKind, triggeredAt int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, string(kind), triggeredAt)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
