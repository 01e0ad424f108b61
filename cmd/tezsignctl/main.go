// Command tezsignctl is the operator CLI: list the keys a running
// tezsignd was configured with, inspect a watermark file on disk, or
// dry-run classify a raw payload without touching any key material.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/keyloader"
	"github.com/tez-capital/tezsign-core/internal/policy"
	"github.com/tez-capital/tezsign-core/internal/watermark"
)

func main() {
	cmd := &cli.Command{
		Name:  "tezsignctl",
		Usage: "tezsignd operator CLI",
		Commands: []*cli.Command{
			showKeysCommand(),
			inspectWatermarkCommand(),
			classifyCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tezsignctl:", err)
		os.Exit(1)
	}
}

func showKeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "list aliases and tz4 addresses from a key file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "keys-file", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			refs, err := keyloader.Static{Path: cmd.String("keys-file")}.Load()
			if err != nil {
				return err
			}
			for _, ref := range refs {
				tz4, err := encoding.Encode(encoding.PrefixPKH, ref.PKH[:])
				if err != nil {
					return err
				}
				fmt.Printf("%-20s %s\n", ref.Alias, tz4)
			}
			return nil
		},
	}
}

func inspectWatermarkCommand() *cli.Command {
	return &cli.Command{
		Name:  "watermark",
		Usage: "show the current watermark for a pkh",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Required: true},
			&cli.StringFlag{Name: "pkh", Required: true, Usage: "tz4... address"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			backend, err := watermark.NewFileBackend(cmd.String("dir"))
			if err != nil {
				return err
			}
			store, err := watermark.New(backend)
			if err != nil {
				return err
			}

			payload, err := encoding.Decode(encoding.PrefixPKH, cmd.String("pkh"))
			if err != nil {
				return err
			}
			var pkh [20]byte
			copy(pkh[:], payload)

			for _, class := range []watermark.Class{watermark.ClassBlock, watermark.ClassPreattestation, watermark.ClassAttestation} {
				rec, ok := store.Current(pkh, class)
				if !ok {
					fmt.Printf("%-16s <none>\n", class.String())
					continue
				}
				fmt.Printf("%-16s level=%d round=%d\n", class.String(), rec.Level, rec.Round)
			}
			return nil
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "dry-run the magic-byte policy classifier over a hex payload",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "payload-hex", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := hex.DecodeString(cmd.String("payload-hex"))
			if err != nil {
				return fmt.Errorf("bad payload-hex: %w", err)
			}
			res, err := policy.Classify(raw, nil)
			if err != nil {
				return err
			}
			if res.Class == policy.ClassRejected {
				fmt.Printf("rejected (magic byte 0x%02x)\n", res.MagicByte)
				return nil
			}
			fmt.Printf("class=%s level=%d round=%d\n", res.Class, res.Level, res.Round)
			return nil
		},
	}
}
