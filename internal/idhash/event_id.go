package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(timestamp_ms|COUNTRY|title)
// Country is upper-cased and title trimmed so provider casing does not split events.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(timestampMs int64, country, title string) string {
	data := fmt.Sprintf("%d|%s|%s",
		timestampMs,
		strings.ToUpper(strings.TrimSpace(country)),
		strings.TrimSpace(title),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
