package hostgateway

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tkhq/verifiable-apps/internal/rerr"
	"github.com/tkhq/verifiable-apps/internal/vsockshim"
)

// Flag names for the Host Gateway CLI.
const (
	HostIPFlagName   = "host-ip"
	HostPortFlagName = "host-port"

	EnclaveUsockFlagName       = "usock"
	EnclaveCIDFlagName         = "cid"
	EnclavePortFlagName        = "port"
	EnclaveVsockToHostFlagName = "vsock-to-host"

	EnclaveSocketTimeoutFlagName = "enclave-app-socket-client-timeout-secs"
	AppHealthURLFlagName         = "app-health-url"
)

const category = "host gateway"

func CLIFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     HostIPFlagName,
			Category: category,
			Usage:    "IP address the gRPC server binds to",
			Value:    "0.0.0.0",
			EnvVars:  []string{"RESHARD_HOST_IP"},
		},
		&cli.IntFlag{
			Name:     HostPortFlagName,
			Category: category,
			Usage:    "Port the gRPC server binds to",
			Value:    50051,
			EnvVars:  []string{"RESHARD_HOST_PORT"},
		},
		&cli.StringFlag{
			Name:     EnclaveUsockFlagName,
			Category: category,
			Usage:    "Unix socket path to reach the enclave (mutually exclusive with --cid/--port)",
			EnvVars:  []string{"RESHARD_HOST_ENCLAVE_USOCK"},
		},
		&cli.UintFlag{
			Name:     EnclaveCIDFlagName,
			Category: category,
			Usage:    "vsock CID of the enclave (paired with --port)",
			EnvVars:  []string{"RESHARD_HOST_ENCLAVE_CID"},
		},
		&cli.UintFlag{
			Name:     EnclavePortFlagName,
			Category: category,
			Usage:    "vsock port of the enclave (paired with --cid)",
			EnvVars:  []string{"RESHARD_HOST_ENCLAVE_PORT"},
		},
		&cli.BoolFlag{
			Name:     EnclaveVsockToHostFlagName,
			Category: category,
			Usage:    "Accepted for CLI compatibility; it has no effect, the enclave address comes from --cid/--port alone",
			EnvVars:  []string{"RESHARD_HOST_VSOCK_TO_HOST"},
		},
		&cli.IntFlag{
			Name:     EnclaveSocketTimeoutFlagName,
			Category: category,
			Usage:    "Seconds; the enclave socket client's absolute I/O timeout is 2x this value",
			Value:    5,
			EnvVars:  []string{"ENCLAVE_APP_SOCKET_CLIENT_TIMEOUT_SECS"},
		},
		&cli.StringFlag{
			Name:     AppHealthURLFlagName,
			Category: category,
			Usage:    "URL the readiness probe loop GETs every 5 seconds",
			EnvVars:  []string{"RESHARD_HOST_APP_HEALTH_URL"},
		},
	}
}

// Config is the validated Host Gateway configuration, read once from the
// CLI context.
type Config struct {
	HostIP   string
	HostPort int

	EnclaveNetwork string // "unix", or "tcp" for the vsock loopback shim
	EnclaveAddress string

	EnclaveSocketTimeout time.Duration
	AppHealthURL         string
}

// ReadCLIConfig reads the Host Gateway's flags into a Config, without
// validating the enclave-socket selection (see Check).
func ReadCLIConfig(ctx *cli.Context) Config {
	return Config{
		HostIP:               ctx.String(HostIPFlagName),
		HostPort:             ctx.Int(HostPortFlagName),
		EnclaveSocketTimeout: time.Duration(ctx.Int(EnclaveSocketTimeoutFlagName)) * time.Second,
		AppHealthURL:         ctx.String(AppHealthURLFlagName),
	}
}

// Check validates the enclave-socket selection (one of --usock or
// --cid/--port; --vsock-to-host is not read) and resolves it into
// EnclaveNetwork/EnclaveAddress. There is no real vsock transport in this
// repository, under any build tag: the CID/port pair is always dialed as
// a local TCP loopback shim, so the CLI surface stays stable without
// real vsock hardware.
func (c *Config) Check(ctx *cli.Context) error {
	usock := ctx.String(EnclaveUsockFlagName)
	cid := ctx.Uint(EnclaveCIDFlagName)
	port := ctx.Uint(EnclavePortFlagName)

	haveUsock := usock != ""
	haveVsock := cid != 0 || port != 0

	switch {
	case haveUsock && haveVsock:
		return rerr.ConfigError("--usock is mutually exclusive with --cid/--port")
	case haveUsock:
		c.EnclaveNetwork = "unix"
		c.EnclaveAddress = usock
	case haveVsock:
		if cid == 0 || port == 0 {
			return rerr.ConfigError("--cid and --port must both be set")
		}
		c.EnclaveNetwork = "tcp"
		c.EnclaveAddress = vsockshim.Address(cid, port)
	default:
		return rerr.ConfigError("one of --usock or --cid/--port is required")
	}

	if c.HostPort <= 0 || c.HostPort > 65535 {
		return rerr.ConfigError("invalid --host-port %d", c.HostPort)
	}
	if c.EnclaveSocketTimeout <= 0 {
		return rerr.ConfigError("--%s must be positive", EnclaveSocketTimeoutFlagName)
	}
	return nil
}
