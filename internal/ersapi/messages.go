// Package ersapi defines the request/response byte vectors the Enclave
// Reshard Service's single-threaded processor consumes and produces.
// These are the opaque application payloads that travel inside
// proxyproto.ProxyRequest/ProxyResponse across
// the host<->enclave socket; this package never touches the socket itself.
package ersapi

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// Variant tags which request or response this message carries.
type Variant uint8

const (
	VariantHealthRequest Variant = iota + 1
	VariantRetrieveBundle
	VariantHealth
	VariantBundle
	VariantError
)

// envelope is the wire shape of one ERS message: a variant tag plus its
// RLP-encoded payload, mirroring proxyproto's kind+body framing one layer
// down.
type envelope struct {
	Variant Variant
	Payload []byte
}

// wireBundle mirrors ceremony.ReshardBundle with RLP-friendly field types
// (ceremony.ManifestEnvelope and ceremony.GenesisMemberOutput already are),
// kept separate from ceremony.CanonicalEncode's rlpMemberOutput shape since
// this one round-trips the whole bundle, not just the signed outputs.
type wireBundle struct {
	QuorumPublicKey   []byte
	AttestationDoc    []byte
	Manifest          []byte
	ManifestApprovals []byte
	ShareSetApprovals []byte
	MemberOutputs     []wireMemberOutput
	Signature         []byte
}

type wireMemberOutput struct {
	MemberAlias    string
	MemberPubKey   []byte
	EncryptedShare []byte
	ShareHash      []byte
}

func toWireBundle(b *ceremony.ReshardBundle) wireBundle {
	outputs := make([]wireMemberOutput, len(b.MemberOutputs))
	for i, o := range b.MemberOutputs {
		outputs[i] = wireMemberOutput{
			MemberAlias:    o.MemberAlias,
			MemberPubKey:   o.MemberPubKey,
			EncryptedShare: o.EncryptedShare,
			ShareHash:      o.ShareHash,
		}
	}
	return wireBundle{
		QuorumPublicKey:   b.QuorumPublicKey,
		AttestationDoc:    b.AttestationDoc,
		Manifest:          b.ManifestEnvelope.Manifest,
		ManifestApprovals: b.ManifestEnvelope.ManifestApprovals,
		ShareSetApprovals: b.ManifestEnvelope.ShareSetApprovals,
		MemberOutputs:     outputs,
		Signature:         b.Signature,
	}
}

func fromWireBundle(w wireBundle) *ceremony.ReshardBundle {
	outputs := make([]ceremony.GenesisMemberOutput, len(w.MemberOutputs))
	for i, o := range w.MemberOutputs {
		outputs[i] = ceremony.GenesisMemberOutput{
			MemberAlias:    o.MemberAlias,
			MemberPubKey:   o.MemberPubKey,
			EncryptedShare: o.EncryptedShare,
			ShareHash:      o.ShareHash,
		}
	}
	return &ceremony.ReshardBundle{
		QuorumPublicKey: w.QuorumPublicKey,
		AttestationDoc:  w.AttestationDoc,
		ManifestEnvelope: ceremony.ManifestEnvelope{
			Manifest:          w.Manifest,
			ManifestApprovals: w.ManifestApprovals,
			ShareSetApprovals: w.ShareSetApprovals,
		},
		MemberOutputs: outputs,
		Signature:     w.Signature,
	}
}

// errorPayload is the single opaque error response variant. It carries a
// message only, never a typed cause: callers outside the enclave get no
// more signal than "malformed request".
type errorPayload struct {
	Message string
}

// EncodeHealthRequest / EncodeRetrieveBundle build the request byte
// vectors a Host Gateway client sends to ERS.
func EncodeHealthRequest() ([]byte, error) {
	return encodeEnvelope(VariantHealthRequest, struct{}{})
}

func EncodeRetrieveBundle() ([]byte, error) {
	return encodeEnvelope(VariantRetrieveBundle, struct{}{})
}

// EncodeHealth / EncodeBundle / EncodeError build the response byte
// vectors the ERS processor emits.
func EncodeHealth() ([]byte, error) {
	return encodeEnvelope(VariantHealth, struct{}{})
}

func EncodeBundle(b *ceremony.ReshardBundle) ([]byte, error) {
	return encodeEnvelope(VariantBundle, toWireBundle(b))
}

func EncodeError(message string) ([]byte, error) {
	return encodeEnvelope(VariantError, errorPayload{Message: message})
}

func encodeEnvelope(variant Variant, payload any) ([]byte, error) {
	encodedPayload, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, rerr.DecodeError("encoding ERS message payload: %w", err)
	}
	encoded, err := rlp.EncodeToBytes(&envelope{Variant: variant, Payload: encodedPayload})
	if err != nil {
		return nil, rerr.DecodeError("encoding ERS message: %w", err)
	}
	return encoded, nil
}

// Message is the decoded form of any request or response this protocol
// carries; exactly one of Bundle/ErrorMessage is meaningful, selected by
// Variant.
type Message struct {
	Variant      Variant
	Bundle       *ceremony.ReshardBundle
	ErrorMessage string
}

// Decode parses a raw byte vector into a Message. Anything that fails to
// parse, or carries an unrecognized variant tag, is a rerr.DecodeError;
// the caller (ERS's processor) converts that into the opaque Error
// response rather than propagating it.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := rlp.DecodeBytes(raw, &env); err != nil {
		return Message{}, rerr.DecodeError("decoding ERS message: %w", err)
	}
	switch env.Variant {
	case VariantHealthRequest, VariantRetrieveBundle, VariantHealth:
		return Message{Variant: env.Variant}, nil
	case VariantBundle:
		var w wireBundle
		if err := rlp.DecodeBytes(env.Payload, &w); err != nil {
			return Message{}, rerr.DecodeError("decoding bundle payload: %w", err)
		}
		return Message{Variant: env.Variant, Bundle: fromWireBundle(w)}, nil
	case VariantError:
		var p errorPayload
		if err := rlp.DecodeBytes(env.Payload, &p); err != nil {
			return Message{}, rerr.DecodeError("decoding error payload: %w", err)
		}
		return Message{Variant: env.Variant, ErrorMessage: p.Message}, nil
	default:
		return Message{}, rerr.DecodeError("unrecognized ERS message variant %d", env.Variant)
	}
}
