package ceremony

import (
	"crypto/ecdsa"
	"crypto/rand"

	"github.com/ethereum/go-ethereum/crypto/ecies"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// EncryptShare ECIES-encrypts a raw Shamir share to a member's P-256
// public key. s1/s2 are left nil: there is no
// shared, out-of-band context to bind into the KDF/MAC for this protocol.
func EncryptShare(alias string, pub *ecdsa.PublicKey, share []byte) ([]byte, error) {
	eciesPub := ecies.ImportECDSAPublic(pub)
	ct, err := ecies.Encrypt(rand.Reader, eciesPub, share, nil, nil)
	if err != nil {
		return nil, rerr.CryptoError("encrypting share for member %q: %w", alias, err)
	}
	return ct, nil
}

// DecryptShare reverses EncryptShare using the recipient's private key.
// Used by the offline verifier, which holds the member private keys the
// enclave never sees.
func DecryptShare(priv *ecdsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	eciesPriv := ecies.ImportECDSA(priv)
	pt, err := eciesPriv.Decrypt(ciphertext, nil, nil)
	if err != nil {
		return nil, rerr.CryptoError("decrypting share: %w", err)
	}
	return pt, nil
}
