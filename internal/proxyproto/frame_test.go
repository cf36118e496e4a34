package proxyproto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrame_ProxyRequest(t *testing.T) {
	var buf bytes.Buffer
	req := &ProxyRequest{Data: []byte("opaque application payload")}

	require.NoError(t, WriteFrame(&buf, KindProxyRequest, req))

	kind, body, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, KindProxyRequest, kind)

	var decoded ProxyRequest
	require.NoError(t, DecodeBody(body, &decoded))
	require.Equal(t, req.Data, decoded.Data)
}

func TestWriteReadFrame_MultipleFramesSequentially(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, KindProxyRequest, &ProxyRequest{Data: []byte("one")}))
	require.NoError(t, WriteFrame(&buf, KindProxyResponse, &ProxyResponse{Data: []byte("two")}))

	kind1, body1, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, KindProxyRequest, kind1)
	var req ProxyRequest
	require.NoError(t, DecodeBody(body1, &req))
	require.Equal(t, []byte("one"), req.Data)

	kind2, body2, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, KindProxyResponse, kind2)
	var resp ProxyResponse
	require.NoError(t, DecodeBody(body2, &resp))
	require.Equal(t, []byte("two"), resp.Data)
}

// Arbitrary garbage bytes behind a valid length prefix must be rejected
// with a structural decode error.
func TestReadFrame_MalformedBytes(t *testing.T) {
	garbage := bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x05, 1, 2, 3, 4, 5})
	_, _, err := ReadFrame(garbage)
	require.Error(t, err)
}

func TestReadFrame_TruncatedStream(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x00}))
	require.Error(t, err)
}

func TestReadFrame_OversizedLengthPrefix(t *testing.T) {
	var lenPrefix [4]byte
	lenPrefix[0] = 0xFF // way beyond maxFrameLen
	_, _, err := ReadFrame(bytes.NewReader(lenPrefix[:]))
	require.Error(t, err)
}

func TestLiveAttestationDocRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := &LiveAttestationDocResponse{NSMResponse: []byte("doc"), ManifestEnvelope: []byte("envelope")}
	require.NoError(t, WriteFrame(&buf, KindLiveAttestationDocResponse, resp))

	kind, body, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, KindLiveAttestationDocResponse, kind)

	var decoded LiveAttestationDocResponse
	require.NoError(t, DecodeBody(body, &decoded))
	require.Equal(t, resp.NSMResponse, decoded.NSMResponse)
	require.Equal(t, resp.ManifestEnvelope, decoded.ManifestEnvelope)
}
