package ceremony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleOutputs() []GenesisMemberOutput {
	return []GenesisMemberOutput{
		{MemberAlias: "a", MemberPubKey: []byte{1, 2, 3}, EncryptedShare: []byte{4, 5}, ShareHash: []byte{6}},
		{MemberAlias: "b", MemberPubKey: []byte{7}, EncryptedShare: []byte{8, 9, 10}, ShareHash: []byte{11, 12}},
	}
}

// Decoding then re-encoding member outputs must yield identical bytes:
// the bundle signature is computed over this encoding.
func TestCanonicalEncode_RoundTrip(t *testing.T) {
	outputs := sampleOutputs()

	encoded, err := CanonicalEncode(outputs)
	require.NoError(t, err)

	decoded, err := CanonicalDecode(encoded)
	require.NoError(t, err)
	require.Equal(t, outputs, decoded)

	reencoded, err := CanonicalEncode(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, reencoded)
}

func TestCanonicalEncode_OrderSensitive(t *testing.T) {
	a := sampleOutputs()
	b := []GenesisMemberOutput{a[1], a[0]}

	encA, err := CanonicalEncode(a)
	require.NoError(t, err)
	encB, err := CanonicalEncode(b)
	require.NoError(t, err)
	require.NotEqual(t, encA, encB)
}

func TestSigningDigest_Deterministic(t *testing.T) {
	outputs := sampleOutputs()
	d1, err := SigningDigest(outputs)
	require.NoError(t, err)
	d2, err := SigningDigest(outputs)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestCanonicalManifestHash_Deterministic(t *testing.T) {
	m := ManifestEnvelope{Manifest: []byte("a"), ManifestApprovals: []byte("b"), ShareSetApprovals: []byte("c")}
	h1, err := CanonicalManifestHash(m)
	require.NoError(t, err)
	h2, err := CanonicalManifestHash(m)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	m2 := m
	m2.Manifest = []byte("z")
	h3, err := CanonicalManifestHash(m2)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}
