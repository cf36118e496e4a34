// Command reshard-host is the host gateway: it exposes the
// RetrieveReshard RPC and a Kubernetes-style health surface, fanning
// concurrent callers onto a single, ordered socket connection to the
// enclave.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/tkhq/verifiable-apps/internal/hostgateway"
	"github.com/tkhq/verifiable-apps/internal/obs"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	_ = godotenv.Load()

	flags := append(hostgateway.CLIFlags(), obs.LoggerCLIFlags("RESHARD_HOST", "host")...)
	flags = append(flags, obs.MetricsCLIFlags()...)

	app := &cli.App{
		Name:   "reshard-host",
		Usage:  "proxies external RPC requests into the enclave over a bounded, back-pressured queue",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reshard-host:", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	logCfg, err := obs.ReadLoggerCLIConfig(cliCtx, "host")
	if err != nil {
		return err
	}
	logger := obs.NewLogger(*logCfg)
	logger.Info("starting reshard-host", "version", Version, "commit", Commit)

	cfg := hostgateway.ReadCLIConfig(cliCtx)
	if err := cfg.Check(cliCtx); err != nil {
		return err
	}

	m := obs.NewMetrics()
	metricsCfg := obs.ReadMetricsConfig(cliCtx)
	if metricsCfg.Enabled {
		metricsSrv, err := m.StartServer(metricsCfg.Host, metricsCfg.Port)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		logger.Info("started metrics server", "addr", metricsSrv.Addr())
		defer func() { _ = metricsSrv.Stop(context.Background()) }()
	}

	queue := hostgateway.NewQueue()
	client := hostgateway.NewEnclaveClient(cfg.EnclaveNetwork, cfg.EnclaveAddress, cfg.EnclaveSocketTimeout)
	defer func() { _ = client.Close() }()

	addr := fmt.Sprintf("%s:%d", cfg.HostIP, cfg.HostPort)
	srv, err := hostgateway.NewServer("tcp", addr, queue, client, logger, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AppHealthURL != "" {
		probe := hostgateway.HTTPAppHealthFunc(&http.Client{Timeout: 3 * time.Second}, cfg.AppHealthURL)
		go hostgateway.ProbeLoop(ctx, probe, srv.Health(), m, logger)
	}

	shutdownCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(shutdownCh)
	}()

	consumer := hostgateway.NewConsumer(queue, client, logger, m)
	logger.Info("reshard-host ready", "addr", srv.Addr().String())
	return srv.Serve(context.Background(), consumer, shutdownCh)
}
