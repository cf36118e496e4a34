// Command reshard-verify is the offline verifier: given a
// ReshardBundle and each recipient's private key, it decrypts shares,
// checks integrity hashes, reconstructs the quorum key from every
// k-subset, and verifies the ephemeral signature.
package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tkhq/verifiable-apps/internal/bundlejson"
	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/rerr"
	"github.com/tkhq/verifiable-apps/internal/verify"
)

const (
	BundleFileFlagName = "bundle-file"
	MemberKeyFlagName  = "member-key"
	ThresholdFlagName  = "threshold"
)

func main() {
	app := &cli.App{
		Name:  "reshard-verify",
		Usage: "offline-verifies a ReshardBundle's reconstruction and signature properties",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     BundleFileFlagName,
				Usage:    "Path to a ReshardBundle JSON file (RetrieveReshard's output)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  MemberKeyFlagName,
				Usage: "alias=path pairs, each path holding a hex-encoded P-256 private scalar; repeatable",
			},
			&cli.IntFlag{
				Name:     ThresholdFlagName,
				Usage:    "Threshold k the share-set was generated with",
				Required: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reshard-verify:", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	raw, err := os.ReadFile(cliCtx.String(BundleFileFlagName))
	if err != nil {
		return rerr.ConfigError("reading bundle file: %w", err)
	}
	bundle, err := bundlejson.Unmarshal(string(raw))
	if err != nil {
		return err
	}

	privByAlias, err := loadMemberKeys(cliCtx.StringSlice(MemberKeyFlagName))
	if err != nil {
		return err
	}

	report, err := verify.Run(bundle, cliCtx.Int(ThresholdFlagName), privByAlias)
	if err != nil {
		return err
	}

	printReport(report)
	if !report.OK() {
		return fmt.Errorf("bundle failed verification")
	}
	fmt.Println("bundle verified OK")
	return nil
}

func loadMemberKeys(pairs []string) (map[string]*ecdsa.PrivateKey, error) {
	out := make(map[string]*ecdsa.PrivateKey, len(pairs))
	for _, pair := range pairs {
		alias, path, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, rerr.ConfigError("--%s expects alias=path, got %q", MemberKeyFlagName, pair)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, rerr.ConfigError("reading member key file %s: %w", path, err)
		}
		scalar, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, rerr.ConfigError("decoding member key file %s: %w", path, err)
		}
		priv, err := ceremony.PrivateKeyFromScalar(scalar)
		if err != nil {
			return nil, err
		}
		out[alias] = priv
	}
	return out, nil
}

func printReport(r verify.Report) {
	fmt.Printf("recovered %d shares\n", len(r.RecoveredShares))
	okAtK := 0
	for _, res := range r.ReconstructionsAtK {
		if res.Match && res.Err == nil {
			okAtK++
		} else {
			fmt.Printf("  FAIL at-threshold subset %v: match=%v err=%v\n", res.Members, res.Match, res.Err)
		}
	}
	fmt.Printf("at-threshold reconstructions: %d/%d matched\n", okAtK, len(r.ReconstructionsAtK))

	badBelowK := 0
	for _, res := range r.ReconstructionsBelowK {
		if res.Match {
			badBelowK++
			fmt.Printf("  FAIL below-threshold subset %v unexpectedly matched\n", res.Members)
		}
	}
	fmt.Printf("below-threshold reconstructions: %d/%d correctly did not match\n",
		len(r.ReconstructionsBelowK)-badBelowK, len(r.ReconstructionsBelowK))

	fmt.Printf("signature valid: %v\n", r.SignatureValid)
	fmt.Printf("random key rejected: %v\n", r.RandomKeyRejected)
}
