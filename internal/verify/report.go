package verify

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/tkhq/verifiable-apps/internal/ceremony"
)

// Report summarizes a full run of all five verifier checks against one
// bundle.
type Report struct {
	RecoveredShares       []RecoveredShare
	ReconstructionsAtK    []ReconstructionResult
	ReconstructionsBelowK []ReconstructionResult
	SignatureValid        bool
	RandomKeyRejected     bool
}

// OK reports whether every property the report checked held.
func (r Report) OK() bool {
	if !r.SignatureValid || !r.RandomKeyRejected {
		return false
	}
	for _, res := range r.ReconstructionsAtK {
		if !res.Match || res.Err != nil {
			return false
		}
	}
	for _, res := range r.ReconstructionsBelowK {
		if res.Match {
			return false
		}
	}
	return true
}

// Run executes every verifier check against bundle and returns a Report. It
// returns an error only for a structural failure that makes the rest of
// verification meaningless (a missing member key, a malformed
// attestation document); per-subset reconstruction failures are recorded
// in the Report, not returned as an error, since "no r<k subset
// reconstructs" is an expected passing result, not a fault.
func Run(bundle *ceremony.ReshardBundle, threshold int, privByAlias map[string]*ecdsa.PrivateKey) (Report, error) {
	recovered, err := RecoverShares(bundle, privByAlias)
	if err != nil {
		return Report{}, fmt.Errorf("recovering shares: %w", err)
	}

	atK, belowK, err := VerifyReconstruction(bundle, recovered, threshold)
	if err != nil {
		return Report{}, fmt.Errorf("verifying reconstruction: %w", err)
	}

	sigOK, err := VerifySignature(bundle)
	if err != nil {
		return Report{}, fmt.Errorf("verifying signature: %w", err)
	}

	randomRejected, err := VerifyRandomKeyRejected(bundle)
	if err != nil {
		return Report{}, fmt.Errorf("verifying random-key rejection: %w", err)
	}

	return Report{
		RecoveredShares:       recovered,
		ReconstructionsAtK:    atK,
		ReconstructionsBelowK: belowK,
		SignatureValid:        sigOK,
		RandomKeyRejected:     randomRejected,
	}, nil
}
