// Package verify implements the offline verifier: a
// stateless checker that, given a ReshardBundle and recipient private
// keys, decrypts shares, verifies share hashes, reconstructs the seed
// from every k-subset, and verifies the ephemeral signature.
package verify

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"

	"github.com/tkhq/verifiable-apps/internal/attestation"
	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// RecoveredShare is one member's decrypted, hash-verified share, keyed by
// its position in bundle.MemberOutputs.
type RecoveredShare struct {
	MemberAlias string
	Share       []byte
}

// RecoverShares decrypts every member output with the matching private
// key in privByAlias and checks SHA-512(plaintext) == share_hash. Any
// mismatch or decryption failure aborts with that member named in the
// error.
func RecoverShares(bundle *ceremony.ReshardBundle, privByAlias map[string]*ecdsa.PrivateKey) ([]RecoveredShare, error) {
	recovered := make([]RecoveredShare, 0, len(bundle.MemberOutputs))
	for _, output := range bundle.MemberOutputs {
		priv, ok := privByAlias[output.MemberAlias]
		if !ok {
			return nil, rerr.ConfigError("no private key supplied for member %q", output.MemberAlias)
		}
		plaintext, err := ceremony.DecryptShare(priv, output.EncryptedShare)
		if err != nil {
			return nil, rerr.CryptoError("member %q: decrypting share: %w", output.MemberAlias, err)
		}
		hash := sha512.Sum512(plaintext)
		if !bytes.Equal(hash[:], output.ShareHash) {
			return nil, rerr.CryptoError("member %q: share hash mismatch", output.MemberAlias)
		}
		recovered = append(recovered, RecoveredShare{MemberAlias: output.MemberAlias, Share: plaintext})
	}
	return recovered, nil
}

// ReconstructionResult is the outcome of attempting to reconstruct the
// quorum public key from one subset of recovered shares.
type ReconstructionResult struct {
	Members []string
	Match   bool
	Err     error
}

// VerifyReconstruction checks the threshold property: every k-subset of
// shares must reconstruct a seed deriving bundle.QuorumPublicKey, and no
// r<k subset may.
//
// threshold is the k the share-set was generated with; callers that don't
// have it out of band (the bundle itself doesn't carry k) must supply it,
// e.g. from the --new-share-set input used to create the bundle.
func VerifyReconstruction(bundle *ceremony.ReshardBundle, recovered []RecoveredShare, threshold int) (atThreshold, belowThreshold []ReconstructionResult, err error) {
	if threshold < 2 || threshold > len(recovered) {
		return nil, nil, rerr.ConfigError("threshold %d out of range for %d recovered shares", threshold, len(recovered))
	}

	for _, subset := range combinations(len(recovered), threshold) {
		atThreshold = append(atThreshold, reconstructSubset(bundle, recovered, subset))
	}
	for r := 1; r < threshold; r++ {
		for _, subset := range combinations(len(recovered), r) {
			belowThreshold = append(belowThreshold, reconstructSubset(bundle, recovered, subset))
		}
	}
	return atThreshold, belowThreshold, nil
}

func reconstructSubset(bundle *ceremony.ReshardBundle, recovered []RecoveredShare, subset []int) ReconstructionResult {
	members := make([]string, len(subset))
	shares := make([][]byte, len(subset))
	for i, idx := range subset {
		members[i] = recovered[idx].MemberAlias
		shares[i] = recovered[idx].Share
	}

	seed, err := ceremony.CombineShares(shares)
	if err != nil {
		return ReconstructionResult{Members: members, Match: false, Err: err}
	}
	priv, err := ceremony.PrivateKeyFromScalar(seed)
	if err != nil {
		return ReconstructionResult{Members: members, Match: false, Err: err}
	}
	q := &ceremony.QuorumKey{Private: priv}
	match := bytes.Equal(q.PublicKeyBytes(), bundle.QuorumPublicKey)
	return ReconstructionResult{Members: members, Match: match}
}

// combinations returns every r-combination of the indices [0, n), as
// slices of indices in increasing order.
func combinations(n, r int) [][]int {
	if r <= 0 || r > n {
		return nil
	}
	var out [][]int
	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}
	for {
		combo := make([]int, r)
		copy(combo, indices)
		out = append(out, combo)

		i := r - 1
		for i >= 0 && indices[i] == i+n-r {
			i--
		}
		if i < 0 {
			return out
		}
		indices[i]++
		for j := i + 1; j < r; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

// VerifySignature recomputes d = SHA-512(canonical_encode(
// member_outputs)) and checks bundle.Signature against the ephemeral
// public key bound into bundle.AttestationDoc.
func VerifySignature(bundle *ceremony.ReshardBundle) (bool, error) {
	doc, err := attestation.DecodeDocument(bundle.AttestationDoc)
	if err != nil {
		return false, err
	}
	ephemeralPub, err := ceremony.ParsePublicKey(doc.PublicKey)
	if err != nil {
		return false, err
	}
	return ceremony.VerifyBundleSignature(bundle, ephemeralPub)
}

// VerifyRandomKeyRejected checks that a freshly generated, unrelated key
// does not verify the bundle's signature.
func VerifyRandomKeyRejected(bundle *ceremony.ReshardBundle) (rejected bool, err error) {
	randomKey, err := newRandomQuorumKey()
	if err != nil {
		return false, err
	}
	ok, err := ceremony.VerifyBundleSignature(bundle, &randomKey.Private.PublicKey)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func newRandomQuorumKey() (*ceremony.EphemeralKey, error) {
	scalar := make([]byte, 32)
	if _, err := rand.Read(scalar); err != nil {
		return nil, rerr.CryptoError("generating random scalar: %w", err)
	}
	priv, err := ceremony.PrivateKeyFromScalar(scalar)
	if err != nil {
		// A uniformly random 32 bytes lands out of P-256's scalar range
		// with negligible probability; retry once deterministically
		// rather than looping, which would make this function's
		// worst-case runtime unbounded for callers.
		scalar[0] ^= 0xFF
		priv, err = ceremony.PrivateKeyFromScalar(scalar)
		if err != nil {
			return nil, err
		}
	}
	return &ceremony.EphemeralKey{Private: priv}, nil
}
