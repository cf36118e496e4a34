// Package attestation provides the enclave's attestation provider
// abstraction: the external hardware module that maps {user_data,
// ephemeral_pub, nonce} to signed attestation bytes. This package defines
// the interface the ceremony consumes, a mock implementation for
// non-hardware builds, and a nitro-tagged hardware provider.
package attestation

import "github.com/tkhq/verifiable-apps/internal/rerr"

// Provider obtains a hardware attestation document. It satisfies
// ceremony.AttestationProvider structurally; no import of the ceremony
// package is needed here, matching the "accept small interfaces where
// used" idiom.
type Provider interface {
	Attest(userData, ephemeralPub, nonce []byte) ([]byte, error)
}

func errHardwareUnavailable(reason string) error {
	return rerr.ConfigError("%s", reason)
}
