package ceremony

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadQuorumKey(t *testing.T) {
	priv := mustGenKey(t)
	scalar := scalarBytes(priv.D)

	path := filepath.Join(t.TempDir(), "quorum.secret")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(scalar)), 0o600))

	loaded, err := LoadQuorumKey(path)
	require.NoError(t, err)
	require.Equal(t, priv.X, loaded.Private.X)
	require.Equal(t, priv.Y, loaded.Private.Y)
}

func TestLoadQuorumKey_MalformedHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quorum.secret")
	require.NoError(t, os.WriteFile(path, []byte("not-hex"), 0o600))

	_, err := LoadQuorumKey(path)
	require.Error(t, err)
}

func TestLoadQuorumKey_MissingFile(t *testing.T) {
	_, err := LoadQuorumKey(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestManifestEnvelope_RoundTrip(t *testing.T) {
	m := ManifestEnvelope{
		Manifest:          []byte("manifest-bytes"),
		ManifestApprovals: []byte("approvals"),
		ShareSetApprovals: []byte("share-set-approvals"),
	}
	encoded, err := EncodeManifestEnvelope(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "m.manifest_envelope")
	require.NoError(t, os.WriteFile(path, encoded, 0o600))

	loaded, err := LoadManifestEnvelope(path)
	require.NoError(t, err)
	require.Equal(t, m, loaded)
}
