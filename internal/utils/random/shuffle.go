package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Shuffle performs a cryptographically secure shuffle of the slice.
func Shuffle[T any](slice []T) error {
	n := len(slice)
	for i := n - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to generate random number: %w", err)
		}
		j := int(jBig.Int64())
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}

// Sample draws up to n elements from the slice uniformly without replacement.
// If the slice holds fewer than n elements, all of them are returned.
func Sample[T any](slice []T, n int) ([]T, error) {
	if n < 0 {
		n = 0
	}
	pool := make([]T, len(slice))
	copy(pool, slice)
	if err := Shuffle(pool); err != nil {
		return nil, err
	}
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n], nil
}
