package ceremony

import (
	"github.com/hashicorp/vault/shamir"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// SplitSeed performs a (n, k) Shamir split of the quorum master seed,
// wrapping github.com/hashicorp/vault/shamir.
func SplitSeed(seed []byte, n, k int) ([][]byte, error) {
	shares, err := shamir.Split(seed, n, k)
	if err != nil {
		return nil, rerr.CryptoError("splitting master seed: %w", err)
	}
	return shares, nil
}

// CombineShares reconstructs the master seed from any k-subset of shares
// produced by SplitSeed. Used by the offline verifier.
func CombineShares(shares [][]byte) ([]byte, error) {
	seed, err := shamir.Combine(shares)
	if err != nil {
		return nil, rerr.CryptoError("reconstructing seed: %w", err)
	}
	return seed, nil
}
