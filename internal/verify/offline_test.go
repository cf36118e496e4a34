package verify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkhq/verifiable-apps/internal/attestation"
	"github.com/tkhq/verifiable-apps/internal/ceremony"
)

type fixture struct {
	bundle      *ceremony.ReshardBundle
	privByAlias map[string]*ecdsa.PrivateKey
	threshold   int
}

func buildFixture(t *testing.T, n, k int) fixture {
	t.Helper()

	quorumPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ephemeralPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	quorum := &ceremony.QuorumKey{Private: quorumPriv}
	ephemeral := &ceremony.EphemeralKey{Private: ephemeralPriv}

	privByAlias := make(map[string]*ecdsa.PrivateKey, n)
	members := make([]ceremony.Member, n)
	for i := 0; i < n; i++ {
		memberPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		alias := string(rune('a' + i))
		members[i] = ceremony.Member{Alias: alias, PubKey: &memberPriv.PublicKey}
		privByAlias[alias] = memberPriv
	}

	manifest := ceremony.ManifestEnvelope{
		Manifest:          []byte("manifest"),
		ManifestApprovals: []byte("approvals"),
		ShareSetApprovals: []byte("share-approvals"),
	}

	bundle, err := ceremony.RunCeremony(quorum, ephemeral, manifest, ceremony.ShareSet{Threshold: k, Members: members}, attestation.NewMockProvider())
	require.NoError(t, err)

	return fixture{bundle: bundle, privByAlias: privByAlias, threshold: k}
}

func TestRecoverShares_HappyPath(t *testing.T) {
	f := buildFixture(t, 5, 3)

	recovered, err := RecoverShares(f.bundle, f.privByAlias)
	require.NoError(t, err)
	require.Len(t, recovered, 5)
}

func TestRecoverShares_MissingKeyErrors(t *testing.T) {
	f := buildFixture(t, 3, 2)
	delete(f.privByAlias, "a")

	_, err := RecoverShares(f.bundle, f.privByAlias)
	require.Error(t, err)
}

// Mutating the first byte of one member's encrypted share breaks that
// share's decryption, which RecoverShares reports as an error naming that
// member, before any signature check runs.
func TestRecoverShares_TamperedShareFailsDecrypt(t *testing.T) {
	f := buildFixture(t, 3, 2)
	f.bundle.MemberOutputs[0].EncryptedShare[0] ^= 0xFF

	_, err := RecoverShares(f.bundle, f.privByAlias)
	require.Error(t, err)
}

func TestVerifyReconstruction_AllKSubsetsMatchNoSmallerSubsetDoes(t *testing.T) {
	f := buildFixture(t, 5, 3)

	recovered, err := RecoverShares(f.bundle, f.privByAlias)
	require.NoError(t, err)

	atK, belowK, err := VerifyReconstruction(f.bundle, recovered, f.threshold)
	require.NoError(t, err)

	require.Len(t, atK, 10) // C(5,3)
	for _, res := range atK {
		require.True(t, res.Match, "subset %v should reconstruct", res.Members)
		require.NoError(t, res.Err)
	}
	for _, res := range belowK {
		require.False(t, res.Match, "subset %v should not reconstruct", res.Members)
	}
}

func TestVerifySignature_Valid(t *testing.T) {
	f := buildFixture(t, 3, 2)

	ok, err := VerifySignature(f.bundle)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRandomKeyRejected(t *testing.T) {
	f := buildFixture(t, 3, 2)

	rejected, err := VerifyRandomKeyRejected(f.bundle)
	require.NoError(t, err)
	require.True(t, rejected)
}
