// Package enclaveserver implements the Enclave Reshard Service's request
// processor and local-socket listener. Startup executes the
// one-shot ceremony via internal/ceremony.RunCeremony; thereafter this
// package only serves Health and RetrieveBundle, synchronously, over
// proxyproto-framed connections.
package enclaveserver

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/ersapi"
)

// Processor is ERS's single-threaded request processor. It owns the
// cached bundle produced once at startup; no locking is needed because
// the processor is never called from more than one goroutine at a time
// (Serve enforces this by handling one connection, one frame, at a
// time).
type Processor struct {
	bundle *ceremony.ReshardBundle
	log    log.Logger
}

// NewProcessor transitions the state machine from Uninit to Ready: the
// ceremony has already run by the time this is constructed, so there is
// no Ready -> Uninit edge and no further precompute ever happens in this
// process's lifetime.
func NewProcessor(bundle *ceremony.ReshardBundle, logger log.Logger) *Processor {
	return &Processor{bundle: bundle, log: logger}
}

// Process consumes one raw request byte vector, decodes it, and produces
// the matching response byte vector. It never returns an error: anything that doesn't decode as HealthRequest or
// RetrieveBundle is reported through the opaque Error response variant,
// keeping the processing loop alive.
func (p *Processor) Process(raw []byte) []byte {
	msg, err := ersapi.Decode(raw)
	if err != nil {
		p.log.Debug("malformed ERS request", "err", err)
		return p.errorResponse(err.Error())
	}

	switch msg.Variant {
	case ersapi.VariantHealthRequest:
		resp, err := ersapi.EncodeHealth()
		if err != nil {
			return p.errorResponse(err.Error())
		}
		return resp
	case ersapi.VariantRetrieveBundle:
		resp, err := ersapi.EncodeBundle(p.bundle)
		if err != nil {
			return p.errorResponse(err.Error())
		}
		return resp
	default:
		return p.errorResponse("unsupported request variant")
	}
}

func (p *Processor) errorResponse(message string) []byte {
	resp, err := ersapi.EncodeError(message)
	if err != nil {
		// ersapi.EncodeError only fails on an RLP bug, not on caller input;
		// there is no narrower response to fall back to.
		p.log.Error("failed to encode ERS error response", "err", err)
		return nil
	}
	return resp
}
