package ceremony

import (
	"crypto/ecdsa"
	"encoding/hex"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// LoadQuorumKey reads a *.secret sealed file (hex-encoded P-256 scalar)
// and returns the quorum key.
func LoadQuorumKey(path string) (*QuorumKey, error) {
	priv, err := loadSecretFile(path)
	if err != nil {
		return nil, err
	}
	return &QuorumKey{Private: priv}, nil
}

// LoadEphemeralKey reads a *.secret sealed file and returns the ephemeral
// key for this boot.
func LoadEphemeralKey(path string) (*EphemeralKey, error) {
	priv, err := loadSecretFile(path)
	if err != nil {
		return nil, err
	}
	return &EphemeralKey{Private: priv}, nil
}

func loadSecretFile(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, rerr.SealedInputError("reading sealed key file %s: %w", path, err)
	}
	scalar, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, rerr.SealedInputError("decoding sealed key file %s: %w", path, err)
	}
	priv, err := PrivateKeyFromScalar(scalar)
	if err != nil {
		return nil, rerr.SealedInputError("loading sealed key file %s: %w", path, err)
	}
	return priv, nil
}

// LoadManifestEnvelope reads a *.manifest_envelope sealed file: the
// canonical binary encoding of a ManifestEnvelope.
func LoadManifestEnvelope(path string) (ManifestEnvelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ManifestEnvelope{}, rerr.SealedInputError("reading manifest envelope %s: %w", path, err)
	}
	var m ManifestEnvelope
	if err := rlp.DecodeBytes(raw, &m); err != nil {
		return ManifestEnvelope{}, rerr.SealedInputError("decoding manifest envelope %s: %w", path, err)
	}
	return m, nil
}
