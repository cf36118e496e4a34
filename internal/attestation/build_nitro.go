//go:build nitro

package attestation

import (
	"os"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// HardwareBuild is true for binaries compiled with the nitro tag, which
// selects the /dev/nsm-backed provider below instead of the software
// stub.
const HardwareBuild = true

// nsmDevicePath is the well-known Nitro Secure Module character device.
const nsmDevicePath = "/dev/nsm"

// HardwareProvider is the nitro-build provider bound to the Nitro Secure
// Module device. It checks that the device exists and opens it; it has no
// NSM ioctl transport (no NSM_IOCTL_SEND request, no CBOR response
// parsing), so it never produces an attestation document.
type HardwareProvider struct {
	devicePath string
}

func NewHardwareProvider() (Provider, error) {
	if _, err := os.Stat(nsmDevicePath); err != nil {
		return nil, rerr.AttestationError("opening NSM device %s: %w", nsmDevicePath, err)
	}
	return &HardwareProvider{devicePath: nsmDevicePath}, nil
}

// Attest opens the NSM device and then always returns an
// AttestationError: this build has no ioctl transport to request a
// document binding userData, nonce, and ephemeralPub, so a ceremony run
// with this provider fails at the attestation step.
func (p *HardwareProvider) Attest(userData, ephemeralPub, nonce []byte) ([]byte, error) {
	f, err := os.OpenFile(p.devicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, rerr.AttestationError("opening %s: %w", p.devicePath, err)
	}
	defer f.Close()

	return nil, rerr.AttestationError("NSM ioctl transport unavailable: this build was compiled with the nitro tag but without the enclave runtime's NSM driver (device=%s)", p.devicePath)
}
