package enclaveserver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/ersapi"
	"github.com/tkhq/verifiable-apps/internal/obs"
)

func sampleBundle() *ceremony.ReshardBundle {
	return &ceremony.ReshardBundle{
		QuorumPublicKey: []byte{1},
		AttestationDoc:  []byte{2, 3},
		ManifestEnvelope: ceremony.ManifestEnvelope{
			Manifest:          []byte("m"),
			ManifestApprovals: []byte("a"),
			ShareSetApprovals: []byte("s"),
		},
		MemberOutputs: []ceremony.GenesisMemberOutput{
			{MemberAlias: "a", MemberPubKey: []byte{4}, EncryptedShare: []byte{5}, ShareHash: []byte{6}},
		},
		Signature: []byte{7},
	}
}

func newTestProcessor() *Processor {
	logger := obs.NewLogger(obs.LoggerConfig{Format: obs.TextLogFormat, Output: io.Discard, Level: slog.LevelInfo})
	return NewProcessor(sampleBundle(), logger)
}

func TestProcessor_HealthRequest(t *testing.T) {
	p := newTestProcessor()

	req, err := ersapi.EncodeHealthRequest()
	require.NoError(t, err)

	raw := p.Process(req)
	msg, err := ersapi.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantHealth, msg.Variant)
}

func TestProcessor_RetrieveBundle(t *testing.T) {
	p := newTestProcessor()

	req, err := ersapi.EncodeRetrieveBundle()
	require.NoError(t, err)

	raw := p.Process(req)
	msg, err := ersapi.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantBundle, msg.Variant)
	require.Equal(t, sampleBundle(), msg.Bundle)
}

// The processor never crashes or hangs on malformed bytes; it replies
// with the opaque Error variant.
func TestProcessor_MalformedRequestReturnsErrorVariant(t *testing.T) {
	p := newTestProcessor()

	raw := p.Process([]byte{0xFF, 0xFF, 0xFF})
	msg, err := ersapi.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantError, msg.Variant)
	require.NotEmpty(t, msg.ErrorMessage)
}
