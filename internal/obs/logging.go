// Package obs holds the ambient, cross-binary observability plumbing shared
// by the enclave and host binaries: CLI-driven logger construction and
// request-scoped logger decoration.
package obs

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log-level"
	PathFlagName   = "log-path"
	FormatFlagName = "log-format"
)

type LogFormat string

const (
	JSONLogFormat LogFormat = "json"
	TextLogFormat LogFormat = "text"
)

// LoggerConfig carries what logger construction needs: a format, an
// output sink, and a level.
type LoggerConfig struct {
	Format LogFormat
	Output io.Writer
	Level  slog.Level
}

func prefixFlag(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}

func prefixEnvVar(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// LoggerCLIFlags returns the logging flag group, grouped under the
// "logging" category for --help output, for a binary identified by
// envPrefix/flagPrefix (e.g.
// "RESHARD_ENCLAVE" / "enclave").
func LoggerCLIFlags(envPrefix, flagPrefix string) []cli.Flag {
	const category = "logging"
	return []cli.Flag{
		&cli.StringFlag{
			Name:     prefixFlag(flagPrefix, LevelFlagName),
			Category: category,
			Usage:    `Lowest log level that will be output. One of "debug", "info", "warn", "error"`,
			Value:    "info",
			EnvVars:  []string{prefixEnvVar(envPrefix, "LOG_LEVEL")},
		},
		&cli.StringFlag{
			Name:     prefixFlag(flagPrefix, PathFlagName),
			Category: category,
			Usage:    "Path to a file logs are additionally written to, beyond stdout",
			Value:    "",
			EnvVars:  []string{prefixEnvVar(envPrefix, "LOG_PATH")},
		},
		&cli.StringFlag{
			Name:     prefixFlag(flagPrefix, FormatFlagName),
			Category: category,
			Usage:    `Log output format, "json" or "text"`,
			Value:    "json",
			EnvVars:  []string{prefixEnvVar(envPrefix, "LOG_FORMAT")},
		},
	}
}

// ReadLoggerCLIConfig parses the logging flag group into a LoggerConfig.
func ReadLoggerCLIConfig(ctx *cli.Context, flagPrefix string) (*LoggerConfig, error) {
	cfg := &LoggerConfig{
		Format: JSONLogFormat,
		Output: os.Stdout,
		Level:  slog.LevelInfo,
	}

	switch LogFormat(ctx.String(prefixFlag(flagPrefix, FormatFlagName))) {
	case JSONLogFormat:
		cfg.Format = JSONLogFormat
	case TextLogFormat:
		cfg.Format = TextLogFormat
	default:
		return nil, fmt.Errorf("invalid log format %q", ctx.String(prefixFlag(flagPrefix, FormatFlagName)))
	}

	if path := ctx.String(prefixFlag(flagPrefix, PathFlagName)); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", path, err)
		}
		cfg.Output = io.MultiWriter(os.Stdout, f)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String(prefixFlag(flagPrefix, LevelFlagName)))); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	cfg.Level = level

	return cfg, nil
}

// NewLogger builds a go-ethereum structured logger from a LoggerConfig.
func NewLogger(cfg LoggerConfig) log.Logger {
	var handler slog.Handler
	switch cfg.Format {
	case TextLogFormat:
		handler = log.NewTerminalHandlerWithLevel(cfg.Output, cfg.Level, false)
	default:
		handler = log.JSONHandlerWithLevel(cfg.Output, cfg.Level)
	}
	return log.NewLogger(handler)
}
