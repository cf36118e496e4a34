package ceremony

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// curve is the single elliptic curve this system operates over: P-256
// for the quorum key, the ephemeral key, and member pubkeys alike.
var curve = elliptic.P256()

// scalarLen is the byte width of a P-256 scalar and of the master seed.
const scalarLen = 32

func elliptic256Marshal(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(curve, pub.X, pub.Y)
}

func scalarBytes(d *big.Int) []byte {
	b := d.Bytes()
	if len(b) == scalarLen {
		return b
	}
	out := make([]byte, scalarLen)
	copy(out[scalarLen-len(b):], b)
	return out
}

// ParsePublicKey decodes an uncompressed SEC1 P-256 point, returning
// rerr.CryptoError for anything that doesn't parse as a valid curve point.
func ParsePublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(curve, raw)
	if x == nil {
		return nil, rerr.CryptoError("invalid P-256 public key encoding")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// PrivateKeyFromScalar reconstructs a P-256 private key from a raw 32-byte
// scalar, as read from a sealed *.secret file.
func PrivateKeyFromScalar(scalar []byte) (*ecdsa.PrivateKey, error) {
	if len(scalar) != scalarLen {
		return nil, rerr.SealedInputError("expected a %d-byte scalar, got %d", scalarLen, len(scalar))
	}
	d := new(big.Int).SetBytes(scalar)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, rerr.SealedInputError("scalar out of range for P-256")
	}
	priv := new(ecdsa.PrivateKey)
	priv.Curve = curve
	priv.D = d
	priv.X, priv.Y = curve.ScalarBaseMult(d.Bytes())
	return priv, nil
}

func validateMemberPubKey(alias string, raw []byte) (*ecdsa.PublicKey, error) {
	pub, err := ParsePublicKey(raw)
	if err != nil {
		return nil, rerr.CryptoError("member %q: %w", alias, err)
	}
	return pub, nil
}
