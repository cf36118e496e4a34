// Command reshard-enclave is the enclave reshard service:
// it performs the resharding ceremony once at startup and then serves
// Health/RetrieveBundle requests over a local stream socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/tkhq/verifiable-apps/internal/attestation"
	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/enclaveserver"
	"github.com/tkhq/verifiable-apps/internal/obs"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "reshard-enclave",
		Usage:  "runs the one-shot quorum-key resharding ceremony and serves the resulting bundle",
		Flags:  append(CLIFlags(), obs.LoggerCLIFlags("RESHARD_ENCLAVE", "enclave")...),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reshard-enclave:", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	logCfg, err := obs.ReadLoggerCLIConfig(cliCtx, "enclave")
	if err != nil {
		return err
	}
	logger := obs.NewLogger(*logCfg)
	logger.Info("starting reshard-enclave", "version", Version, "commit", Commit)

	bundle, err := precompute(cliCtx, logger)
	if err != nil {
		return err
	}

	network, address, err := listenTarget(cliCtx)
	if err != nil {
		return err
	}

	processor := enclaveserver.NewProcessor(bundle, logger)
	srv, err := enclaveserver.NewServer(network, address, processor, logger)
	if err != nil {
		return fmt.Errorf("binding enclave socket: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down reshard-enclave")
		_ = srv.Close()
	}()

	logger.Info("reshard-enclave ready", "addr", srv.Addr().String())
	return srv.Serve()
}

// precompute executes the one-shot startup ceremony. Every
// error returned here is fatal: main exits non-zero before the socket is
// ever bound.
func precompute(cliCtx *cli.Context, logger log.Logger) (*ceremony.ReshardBundle, error) {
	quorumKey, err := ceremony.LoadQuorumKey(cliCtx.String(QuorumFileFlagName))
	if err != nil {
		return nil, err
	}
	ephemeralKey, err := ceremony.LoadEphemeralKey(cliCtx.String(EphemeralFileFlagName))
	if err != nil {
		return nil, err
	}
	manifest, err := ceremony.LoadManifestEnvelope(cliCtx.String(ManifestFileFlagName))
	if err != nil {
		return nil, err
	}

	jsonForm, threshold, members, err := shareSetInputs(cliCtx)
	if err != nil {
		return nil, err
	}
	var shareSet ceremony.ShareSet
	if jsonForm != "" {
		shareSet, err = ceremony.ParseShareSetJSON(jsonForm)
	} else {
		shareSet, err = ceremony.ParseShareSetSplit(threshold, members)
	}
	if err != nil {
		return nil, err
	}
	if err := ceremony.ValidateShareSet(shareSet); err != nil {
		return nil, err
	}

	provider, err := attestation.SelectProvider(cliCtx.Bool(MockNSMFlagName))
	if err != nil {
		return nil, err
	}

	logger.Info("running resharding ceremony", "members", len(shareSet.Members), "threshold", shareSet.Threshold)
	return ceremony.RunCeremony(quorumKey, ephemeralKey, manifest, shareSet, provider)
}
