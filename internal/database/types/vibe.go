package types

import (
	"math"

	"github.com/bytedance/sonic"
)

// VibeScores maps a vibe category to its inferred, non-negative score.
type VibeScores map[string]int

// ParseVibeScores decodes a persisted score vector. Missing or malformed
// input yields an empty vector, and negative or fractional scores are
// clamped to non-negative integers.
func ParseVibeScores(raw string) VibeScores {
	scores := make(VibeScores)
	if raw == "" {
		return scores
	}

	var decoded map[string]float64
	if err := sonic.UnmarshalString(raw, &decoded); err != nil {
		return scores
	}

	for name, v := range decoded {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		scores[name] = int(math.Floor(v))
	}

	return scores
}

// Encode serializes the vector for storage.
func (s VibeScores) Encode() (string, error) {
	return sonic.MarshalString(s)
}

// Add returns a new vector with the deltas applied.
func (s VibeScores) Add(deltas map[string]int) VibeScores {
	out := make(VibeScores, len(s)+len(deltas))
	for name, v := range s {
		out[name] = v
	}
	for name, d := range deltas {
		out[name] += d
	}
	return out
}

// ParseChosenVibes decodes a persisted chosen-vibe array. Malformed input
// yields nil, and blank or repeated entries are dropped.
func ParseChosenVibes(raw string) []string {
	if raw == "" {
		return nil
	}

	var decoded []string
	if err := sonic.UnmarshalString(raw, &decoded); err != nil {
		return nil
	}

	return NormalizeChosenVibes(decoded)
}

// NormalizeChosenVibes drops blank and repeated entries, keeping first-seen order.
func NormalizeChosenVibes(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	chosen := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		chosen = append(chosen, name)
	}

	return chosen
}

// EncodeChosenVibes serializes a chosen-vibe array for storage.
func EncodeChosenVibes(chosen []string) (string, error) {
	if chosen == nil {
		chosen = []string{}
	}
	return sonic.MarshalString(chosen)
}
