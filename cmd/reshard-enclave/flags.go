package main

import (
	"github.com/urfave/cli/v2"

	"github.com/tkhq/verifiable-apps/internal/rerr"
	"github.com/tkhq/verifiable-apps/internal/vsockshim"
)

// Flag names for the enclave CLI.
const (
	UsockFlagName = "usock"
	CIDFlagName   = "cid"
	PortFlagName  = "port"

	QuorumFileFlagName    = "quorum-file"
	EphemeralFileFlagName = "ephemeral-file"
	ManifestFileFlagName  = "manifest-file"

	NewShareSetFlagName = "new-share-set"
	ThresholdFlagName   = "threshold"
	MembersFlagName     = "members"

	MockNSMFlagName = "mock-nsm"
)

const category = "enclave"

func CLIFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     UsockFlagName,
			Category: category,
			Usage:    "Local stream socket path to listen on (mutually exclusive with --cid/--port)",
			EnvVars:  []string{"RESHARD_ENCLAVE_USOCK"},
		},
		&cli.UintFlag{
			Name:     CIDFlagName,
			Category: category,
			Usage:    "vsock CID to listen on (paired with --port)",
			EnvVars:  []string{"RESHARD_ENCLAVE_CID"},
		},
		&cli.UintFlag{
			Name:     PortFlagName,
			Category: category,
			Usage:    "vsock port to listen on (paired with --cid)",
			EnvVars:  []string{"RESHARD_ENCLAVE_PORT"},
		},
		&cli.StringFlag{
			Name:     QuorumFileFlagName,
			Category: category,
			Usage:    "Sealed file holding the quorum key's hex-encoded private scalar",
			Value:    "quorum.secret",
			EnvVars:  []string{"RESHARD_ENCLAVE_QUORUM_FILE"},
		},
		&cli.StringFlag{
			Name:     EphemeralFileFlagName,
			Category: category,
			Usage:    "Sealed file holding the ephemeral key's hex-encoded private scalar",
			Value:    "ephemeral.secret",
			EnvVars:  []string{"RESHARD_ENCLAVE_EPHEMERAL_FILE"},
		},
		&cli.StringFlag{
			Name:     ManifestFileFlagName,
			Category: category,
			Usage:    "Sealed file holding the canonical-encoded manifest envelope",
			Value:    "manifest.manifest_envelope",
			EnvVars:  []string{"RESHARD_ENCLAVE_MANIFEST_FILE"},
		},
		&cli.StringFlag{
			Name:     NewShareSetFlagName,
			Category: category,
			Usage:    `Inline JSON new share-set: {"threshold":k,"members":[{"alias":"...","pubKey":"<hex>"}]}`,
			EnvVars:  []string{"RESHARD_ENCLAVE_NEW_SHARE_SET"},
		},
		&cli.IntFlag{
			Name:     ThresholdFlagName,
			Category: category,
			Usage:    "Threshold k for the split --members form",
			EnvVars:  []string{"RESHARD_ENCLAVE_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:     MembersFlagName,
			Category: category,
			Usage:    "Semicolon-separated hex member public keys for the split form; aliases synthesized as reshard-1..reshard-n",
			EnvVars:  []string{"RESHARD_ENCLAVE_MEMBERS"},
		},
		&cli.BoolFlag{
			Name:     MockNSMFlagName,
			Category: category,
			Usage:    "Use a software attestation stub instead of real hardware (refused on a nitro hardware build)",
			EnvVars:  []string{"RESHARD_ENCLAVE_MOCK_NSM"},
		},
	}
}

// listenTarget resolves the socket the enclave service binds: exactly one
// of --usock or --cid/--port. There is no real vsock listener: the
// CID/port pair always maps onto a deterministic loopback TCP address,
// mirroring how the host gateway dials it.
func listenTarget(ctx *cli.Context) (network, address string, err error) {
	usock := ctx.String(UsockFlagName)
	cid := ctx.Uint(CIDFlagName)
	port := ctx.Uint(PortFlagName)

	haveUsock := usock != ""
	haveVsock := cid != 0 || port != 0

	switch {
	case haveUsock && haveVsock:
		return "", "", rerr.ConfigError("--%s is mutually exclusive with --%s/--%s", UsockFlagName, CIDFlagName, PortFlagName)
	case haveUsock:
		return "unix", usock, nil
	case haveVsock:
		if cid == 0 || port == 0 {
			return "", "", rerr.ConfigError("--%s and --%s must both be set", CIDFlagName, PortFlagName)
		}
		return "tcp", vsockshim.Address(cid, port), nil
	default:
		return "", "", rerr.ConfigError("one of --%s or --%s/--%s is required", UsockFlagName, CIDFlagName, PortFlagName)
	}
}

// shareSetInputs resolves the two accepted CLI shapes for the new share
// set: exactly one of --new-share-set or
// --threshold/--members must be given.
func shareSetInputs(ctx *cli.Context) (jsonForm string, threshold int, members string, err error) {
	jsonForm = ctx.String(NewShareSetFlagName)
	threshold = ctx.Int(ThresholdFlagName)
	members = ctx.String(MembersFlagName)

	haveJSON := jsonForm != ""
	haveSplit := threshold != 0 || members != ""

	switch {
	case haveJSON && haveSplit:
		return "", 0, "", rerr.ConfigError("--%s is mutually exclusive with --%s/--%s", NewShareSetFlagName, ThresholdFlagName, MembersFlagName)
	case !haveJSON && !haveSplit:
		return "", 0, "", rerr.ConfigError("one of --%s or --%s/--%s is required", NewShareSetFlagName, ThresholdFlagName, MembersFlagName)
	case haveSplit && (threshold == 0 || members == ""):
		return "", 0, "", rerr.ConfigError("--%s requires both --%s and --%s", ThresholdFlagName, ThresholdFlagName, MembersFlagName)
	}
	return jsonForm, threshold, members, nil
}
