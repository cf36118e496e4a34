package attestation

import (
	"crypto/hmac"
	"crypto/sha512"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// mockModuleKey is the fixed "signing key" the software attestation stub
// uses in place of a real hardware module's device key. It exists only to
// make --mock-nsm documents self-consistent for local development and
// tests; it carries no security property.
var mockModuleKey = []byte("reshard-mock-nsm-module-key-do-not-trust")

// Document is the attestation document wire shape this codebase's
// providers (mock and hardware) produce: it binds user_data, an optional
// nonce, and the caller-supplied public key under a module signature.
// The ceremony stores the blob verbatim and never inspects it beyond
// pass-through; the offline verifier is the one consumer that reaches into
// it, to recover PublicKey for signature verification.
type Document struct {
	UserData        []byte
	Nonce           []byte
	PublicKey       []byte
	ModuleSignature []byte
}

func signDocument(userData, nonce, publicKey []byte) []byte {
	mac := hmac.New(sha512.New, mockModuleKey)
	mac.Write(userData)
	mac.Write(nonce)
	mac.Write(publicKey)
	return mac.Sum(nil)
}

// EncodeDocument canonically encodes an attestation Document for storage
// in ReshardBundle.AttestationDoc.
func EncodeDocument(d Document) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&d)
	if err != nil {
		return nil, rerr.AttestationError("encoding attestation document: %w", err)
	}
	return encoded, nil
}

// DecodeDocument is the inverse of EncodeDocument, used by the offline
// verifier to recover the ephemeral public key bound into a bundle.
func DecodeDocument(raw []byte) (Document, error) {
	var d Document
	if err := rlp.DecodeBytes(raw, &d); err != nil {
		return Document{}, rerr.DecodeError("decoding attestation document: %w", err)
	}
	return d, nil
}

// MockProvider is the software attestation stub selected by --mock-nsm. It
// fabricates a Document whose ModuleSignature is an HMAC rather than a
// hardware module's device-key signature.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (MockProvider) Attest(userData, ephemeralPub, nonce []byte) ([]byte, error) {
	doc := Document{
		UserData:  userData,
		Nonce:     nonce,
		PublicKey: ephemeralPub,
	}
	doc.ModuleSignature = signDocument(doc.UserData, doc.Nonce, doc.PublicKey)
	return EncodeDocument(doc)
}
