package ceremony

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// AttestationProvider maps {user_data, ephemeral_pub, nonce} to signed
// attestation bytes. The hardware module stays behind this small
// interface, satisfied by both internal/attestation's mock and
// real-hardware providers.
type AttestationProvider interface {
	Attest(userData, ephemeralPub, nonce []byte) ([]byte, error)
}

// RunCeremony executes the startup precompute exactly once. Loading the
// sealed keys happens before this is called. Any error returned here is
// fatal: the caller must refuse to bind ERS's socket.
func RunCeremony(
	quorum *QuorumKey,
	ephemeral *EphemeralKey,
	manifest ManifestEnvelope,
	shares ShareSet,
	provider AttestationProvider,
) (*ReshardBundle, error) {
	manifestHash, err := CanonicalManifestHash(manifest)
	if err != nil {
		return nil, err
	}

	attestationDoc, err := provider.Attest(manifestHash, ephemeral.PublicKeyBytes(), nil)
	if err != nil {
		return nil, rerr.AttestationError("requesting attestation document: %w", err)
	}
	if len(attestationDoc) == 0 {
		return nil, rerr.AttestationError("attestation provider returned an empty document")
	}

	if err := ValidateShareSet(shares); err != nil {
		return nil, err
	}

	seed := quorum.MasterSeed()
	rawShares, err := SplitSeed(seed, len(shares.Members), shares.Threshold)
	if err != nil {
		return nil, err
	}

	memberOutputs := make([]GenesisMemberOutput, len(shares.Members))
	for i, member := range shares.Members {
		encrypted, err := EncryptShare(member.Alias, member.PubKey, rawShares[i])
		if err != nil {
			return nil, err
		}
		hash := sha512.Sum512(rawShares[i])
		memberOutputs[i] = GenesisMemberOutput{
			MemberAlias:    member.Alias,
			MemberPubKey:   elliptic256Marshal(member.PubKey),
			EncryptedShare: encrypted,
			ShareHash:      hash[:],
		}
	}
	zeroize(seed)
	for _, s := range rawShares {
		zeroize(s)
	}

	digest, err := SigningDigest(memberOutputs)
	if err != nil {
		return nil, err
	}
	signature, err := ecdsa.SignASN1(rand.Reader, ephemeral.Private, digest)
	if err != nil {
		return nil, rerr.CryptoError("signing ceremony digest: %w", err)
	}

	return &ReshardBundle{
		QuorumPublicKey:  quorum.PublicKeyBytes(),
		AttestationDoc:   attestationDoc,
		ManifestEnvelope: manifest,
		MemberOutputs:    memberOutputs,
		Signature:        signature,
	}, nil
}

// VerifyBundleSignature recomputes d = SHA-512(canonical_encode(
// member_outputs)) and verifies bundle.Signature against ephemeralPub.
// Used by the offline verifier.
func VerifyBundleSignature(bundle *ReshardBundle, ephemeralPub *ecdsa.PublicKey) (bool, error) {
	digest, err := SigningDigest(bundle.MemberOutputs)
	if err != nil {
		return false, err
	}
	return ecdsa.VerifyASN1(ephemeralPub, digest, bundle.Signature), nil
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
