package random

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// SeedBytes is the entropy drawn for a selection seed.
const SeedBytes = 32

// NewSeed generates a cryptographically secure selection seed, hex-encoded.
// The seed is published with giveaway results so anyone can replay the draw.
func NewSeed() (string, error) {
	buf := make([]byte, SeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SeededShuffle performs a Fisher-Yates shuffle driven entirely by the seed.
// For each position the next four seed bytes, cycling from the start once
// exhausted, form a big-endian uint32 reduced modulo i+1. The same seed and
// the same input ordering always produce the same permutation.
func SeededShuffle[T any](slice []T, seed string) error {
	raw, err := hex.DecodeString(seed)
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty seed")
	}

	cursor := 0
	next := func() uint32 {
		word := make([]byte, 4)
		for k := 0; k < 4; k++ {
			word[k] = raw[cursor%len(raw)]
			cursor++
		}
		return binary.BigEndian.Uint32(word)
	}

	for i := len(slice) - 1; i > 0; i-- {
		j := int(next() % uint32(i+1))
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}
