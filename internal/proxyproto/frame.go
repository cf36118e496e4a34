// Package proxyproto implements the thin envelope protocol that lets the
// Host Gateway forward opaque application payloads across the host<->enclave
// socket. The envelope itself never inspects the payload it
// carries: ProxyRequest/ProxyResponse wrap whatever bytes the ERS request
// processor (internal/ersapi) understands, and LiveAttestationDoc* lets a
// caller fetch the attestation document out of band from the ceremony
// bundle itself.
package proxyproto

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// Kind tags which envelope variant a frame carries. Unknown kinds are a
// structural decode error; the socket is treated as untrusted bytes.
type Kind uint8

const (
	KindProxyRequest Kind = iota + 1
	KindProxyResponse
	KindLiveAttestationDocRequest
	KindLiveAttestationDocResponse
)

// maxFrameLen bounds a single frame's payload to the same 25 MiB ceiling
// the Host Gateway enforces on inbound RPC messages, so a
// malformed length prefix can't make a reader allocate unbounded memory.
const maxFrameLen = 25 * 1024 * 1024

// ProxyRequest carries an opaque application payload from host to enclave.
type ProxyRequest struct {
	Data []byte
}

// ProxyResponse carries an opaque application payload from enclave to host.
type ProxyResponse struct {
	Data []byte
}

// LiveAttestationDocRequest asks the enclave for its attestation document
// outside the ERS request/response payloads. The enclave server answers
// with the document stored in its cached ceremony bundle; it does not
// request a new one.
type LiveAttestationDocRequest struct{}

// LiveAttestationDocResponse carries the raw NSM response and, optionally,
// the canonical-encoded manifest envelope it was taken over.
type LiveAttestationDocResponse struct {
	NSMResponse      []byte
	ManifestEnvelope []byte // empty when none was supplied
}

// rlpFrame is the on-the-wire shape: a kind tag plus an RLP-encoded body,
// itself length-prefixed by WriteFrame/ReadFrame so a reader never needs
// to buffer more than one frame to find its boundary.
type rlpFrame struct {
	Kind Kind
	Body []byte
}

// WriteFrame length-prefix writes one envelope message to w. The 4-byte
// big-endian length prefix covers the encoded rlpFrame.
func WriteFrame(w io.Writer, kind Kind, body any) error {
	encodedBody, err := rlp.EncodeToBytes(body)
	if err != nil {
		return rerr.DecodeError("encoding frame body: %w", err)
	}
	encoded, err := rlp.EncodeToBytes(&rlpFrame{Kind: kind, Body: encodedBody})
	if err != nil {
		return rerr.DecodeError("encoding frame: %w", err)
	}
	if len(encoded) > maxFrameLen {
		return rerr.DecodeError("frame of %d bytes exceeds the %d byte limit", len(encoded), maxFrameLen)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(encoded)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its kind
// plus the still-RLP-encoded body, for the caller to decode with the
// matching type via DecodeBody. Any structural problem (a truncated
// stream, an oversized length prefix, malformed RLP) returns a
// rerr.DecodeError rather than panicking, since the socket carries
// untrusted bytes.
func ReadFrame(r io.Reader) (Kind, []byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return 0, nil, rerr.DecodeError("reading frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameLen {
		return 0, nil, rerr.DecodeError("frame length %d exceeds the %d byte limit", n, maxFrameLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, rerr.DecodeError("reading frame body: %w", err)
	}

	var frame rlpFrame
	if err := rlp.DecodeBytes(buf, &frame); err != nil {
		return 0, nil, rerr.DecodeError("decoding frame: %w", err)
	}
	switch frame.Kind {
	case KindProxyRequest, KindProxyResponse, KindLiveAttestationDocRequest, KindLiveAttestationDocResponse:
		return frame.Kind, frame.Body, nil
	default:
		return 0, nil, rerr.DecodeError("unknown frame kind %d", frame.Kind)
	}
}

// DecodeBody RLP-decodes a frame body into dst, given the Kind ReadFrame
// already validated.
func DecodeBody(body []byte, dst any) error {
	if err := rlp.DecodeBytes(body, dst); err != nil {
		return rerr.DecodeError("decoding frame body: %w", err)
	}
	return nil
}
