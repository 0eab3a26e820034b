package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ComputeParamsHash computes a short deterministic hash of reaction parameters.
// Formula: SHA256(pip_factor|threshold|reversal_fraction|require_sign_flip|min_window|min_events)
// Floats are formatted with strconv 'g' so equal values always hash equally.
// Returns the first 16 hex characters.
func ComputeParamsHash(
	pipFactor float64,
	thresholdPips float64,
	reversalFraction float64,
	requireSignFlip bool,
	minWindowSamples int,
	minEvents int,
) string {
	parts := []string{
		strconv.FormatFloat(pipFactor, 'g', -1, 64),
		strconv.FormatFloat(thresholdPips, 'g', -1, 64),
		strconv.FormatFloat(reversalFraction, 'g', -1, 64),
		strconv.FormatBool(requireSignFlip),
		strconv.Itoa(minWindowSamples),
		strconv.Itoa(minEvents),
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])[:16]
}
