// Package bundlejson implements the external JSON contract for
// ReshardBundle: camelCase field names, lowercase hex (no "0x") for byte
// fields. The JSON shape is the canonical external contract, and this is
// the only place ReshardBundle crosses into JSON; internally the bundle
// travels as RLP (internal/ersapi).
package bundlejson

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// hexBytes marshals as bare lowercase hex. The external contract carries
// no "0x" prefix; Unmarshal tolerates one anyway, since operator tooling
// tends to paste prefixed strings.
type hexBytes []byte

func (b hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *hexBytes) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

type memberOutput struct {
	MemberAlias    string   `json:"memberAlias"`
	MemberPubKey   hexBytes `json:"memberPubKey"`
	EncryptedShare hexBytes `json:"encryptedShare"`
	ShareHash      hexBytes `json:"shareHash"`
}

type manifestEnvelope struct {
	Manifest          hexBytes `json:"manifest"`
	ManifestApprovals hexBytes `json:"manifestApprovals"`
	ShareSetApprovals hexBytes `json:"shareSetApprovals"`
}

type bundle struct {
	QuorumPublicKey  hexBytes         `json:"quorumPublicKey"`
	AttestationDoc   hexBytes         `json:"attestationDoc"`
	ManifestEnvelope manifestEnvelope `json:"manifestEnvelope"`
	MemberOutputs    []memberOutput   `json:"memberOutputs"`
	Signature        hexBytes         `json:"signature"`
}

// Marshal encodes a ReshardBundle as the hex/camelCase JSON string that
// RetrieveReshard returns.
func Marshal(b *ceremony.ReshardBundle) (string, error) {
	outputs := make([]memberOutput, len(b.MemberOutputs))
	for i, o := range b.MemberOutputs {
		outputs[i] = memberOutput{
			MemberAlias:    o.MemberAlias,
			MemberPubKey:   o.MemberPubKey,
			EncryptedShare: o.EncryptedShare,
			ShareHash:      o.ShareHash,
		}
	}
	wire := bundle{
		QuorumPublicKey: b.QuorumPublicKey,
		AttestationDoc:  b.AttestationDoc,
		ManifestEnvelope: manifestEnvelope{
			Manifest:          b.ManifestEnvelope.Manifest,
			ManifestApprovals: b.ManifestEnvelope.ManifestApprovals,
			ShareSetApprovals: b.ManifestEnvelope.ShareSetApprovals,
		},
		MemberOutputs: outputs,
		Signature:     b.Signature,
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", rerr.Internal("marshaling bundle JSON: %w", err)
	}
	return string(raw), nil
}

// Unmarshal is the inverse of Marshal, used by the offline verifier to
// parse a bundle handed to it as the external JSON contract.
func Unmarshal(raw string) (*ceremony.ReshardBundle, error) {
	var wire bundle
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, rerr.DecodeError("parsing bundle JSON: %w", err)
	}
	outputs := make([]ceremony.GenesisMemberOutput, len(wire.MemberOutputs))
	for i, o := range wire.MemberOutputs {
		outputs[i] = ceremony.GenesisMemberOutput{
			MemberAlias:    o.MemberAlias,
			MemberPubKey:   o.MemberPubKey,
			EncryptedShare: o.EncryptedShare,
			ShareHash:      o.ShareHash,
		}
	}
	return &ceremony.ReshardBundle{
		QuorumPublicKey: wire.QuorumPublicKey,
		AttestationDoc:  wire.AttestationDoc,
		ManifestEnvelope: ceremony.ManifestEnvelope{
			Manifest:          wire.ManifestEnvelope.Manifest,
			ManifestApprovals: wire.ManifestEnvelope.ManifestApprovals,
			ShareSetApprovals: wire.ManifestEnvelope.ShareSetApprovals,
		},
		MemberOutputs: outputs,
		Signature:     wire.Signature,
	}, nil
}
