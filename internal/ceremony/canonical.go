package ceremony

import (
	"crypto/sha512"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// rlpMemberOutput mirrors GenesisMemberOutput field-for-field; rlp needs an
// exported, tag-free struct to get a deterministic, explicit field order.
type rlpMemberOutput struct {
	MemberAlias    string
	MemberPubKey   []byte
	EncryptedShare []byte
	ShareHash      []byte
}

// CanonicalEncode deterministically, length-prefix encodes member_outputs
// for signing. The byte layout is part of the external contract: any
// change breaks verifiers that recompute the signing digest.
func CanonicalEncode(outputs []GenesisMemberOutput) ([]byte, error) {
	wire := make([]rlpMemberOutput, len(outputs))
	for i, o := range outputs {
		wire[i] = rlpMemberOutput{
			MemberAlias:    o.MemberAlias,
			MemberPubKey:   o.MemberPubKey,
			EncryptedShare: o.EncryptedShare,
			ShareHash:      o.ShareHash,
		}
	}
	encoded, err := rlp.EncodeToBytes(wire)
	if err != nil {
		return nil, rerr.CryptoError("canonical encoding member outputs: %w", err)
	}
	return encoded, nil
}

// CanonicalDecode is the inverse of CanonicalEncode, used by the offline
// verifier.
func CanonicalDecode(data []byte) ([]GenesisMemberOutput, error) {
	var wire []rlpMemberOutput
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, rerr.DecodeError("decoding canonical member outputs: %w", err)
	}
	outputs := make([]GenesisMemberOutput, len(wire))
	for i, w := range wire {
		outputs[i] = GenesisMemberOutput{
			MemberAlias:    w.MemberAlias,
			MemberPubKey:   w.MemberPubKey,
			EncryptedShare: w.EncryptedShare,
			ShareHash:      w.ShareHash,
		}
	}
	return outputs, nil
}

// SigningDigest computes d = SHA-512(canonical_encode(member_outputs)),
// the value the ephemeral key signs and the offline verifier recomputes.
func SigningDigest(outputs []GenesisMemberOutput) ([]byte, error) {
	encoded, err := CanonicalEncode(outputs)
	if err != nil {
		return nil, err
	}
	sum := sha512.Sum512(encoded)
	return sum[:], nil
}

// EncodeManifestEnvelope produces the canonical binary encoding written to
// *.manifest_envelope sealed files.
func EncodeManifestEnvelope(m ManifestEnvelope) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&m)
	if err != nil {
		return nil, rerr.CryptoError("encoding manifest envelope: %w", err)
	}
	return encoded, nil
}

// CanonicalManifestHash computes H_m, the manifest's canonical hash
// embedded as user_data in the attestation request.
func CanonicalManifestHash(m ManifestEnvelope) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&m)
	if err != nil {
		return nil, rerr.CryptoError("canonical encoding manifest envelope: %w", err)
	}
	sum := sha512.Sum512(encoded)
	return sum[:], nil
}
