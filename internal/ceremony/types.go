// Package ceremony implements the one-shot resharding ceremony performed by
// the Enclave Reshard Service at boot: loading sealed secrets, splitting the
// quorum master seed via Shamir, per-recipient ECIES encryption, canonical
// encoding, and signing of the resulting bundle.
package ceremony

import "crypto/ecdsa"

// QuorumKey is the long-lived signing key whose master seed is being
// resharded. Its 32-byte master seed is the scalar encoded by D.
type QuorumKey struct {
	Private *ecdsa.PrivateKey
}

// PublicKeyBytes returns the uncompressed SEC1 encoding of the quorum
// public key, the form embedded verbatim in ReshardBundle.QuorumPublicKey.
func (k *QuorumKey) PublicKeyBytes() []byte {
	return elliptic256Marshal(&k.Private.PublicKey)
}

// MasterSeed returns the 32-byte scalar this quorum key is derived from.
// The scalar, not any derived key material, is what gets Shamir-split.
func (k *QuorumKey) MasterSeed() []byte {
	return scalarBytes(k.Private.D)
}

// EphemeralKey is a per-boot P-256 keypair. Its public half is bound into
// the attestation document; its private half signs this run's outputs
// exactly once.
type EphemeralKey struct {
	Private *ecdsa.PrivateKey
}

func (k *EphemeralKey) PublicKeyBytes() []byte {
	return elliptic256Marshal(&k.Private.PublicKey)
}

// ManifestEnvelope is an opaque, read-only input whose canonical hash is
// embedded as user_data in the attestation request.
type ManifestEnvelope struct {
	Manifest          []byte
	ManifestApprovals []byte
	ShareSetApprovals []byte
}

// Member is one entry of a ShareSet: an alias and the P-256 public key the
// member's share will be encrypted to.
type Member struct {
	Alias  string
	PubKey *ecdsa.PublicKey
}

// ShareSet describes the new group of custodians a quorum key is being
// resharded into. Insertion order of Members defines share assignment.
type ShareSet struct {
	Threshold int
	Members   []Member
}

// GenesisMemberOutput is one member's encrypted share plus its integrity
// hash, in share-set order.
type GenesisMemberOutput struct {
	MemberAlias    string
	MemberPubKey   []byte
	EncryptedShare []byte
	ShareHash      []byte
}

// ReshardBundle is the single externally-visible artifact of a ceremony:
// produced exactly once per ERS boot, immutable thereafter.
type ReshardBundle struct {
	QuorumPublicKey  []byte
	AttestationDoc   []byte
	ManifestEnvelope ManifestEnvelope
	MemberOutputs    []GenesisMemberOutput
	Signature        []byte
}
