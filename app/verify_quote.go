package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/quote"
)

func newVerifyQuoteCmd() *cobra.Command {
	var (
		measurementHex string
		offline        bool
		collateralURL  string
	)

	cmd := &cobra.Command{
		Use:   "verify-quote <file>",
		Short: "Verify a base64 TEE attestation quote read from a file (or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readQuoteInput(args[0])
			if err != nil {
				return err
			}

			var expected []byte
			if measurementHex != "" {
				expected, err = hex.DecodeString(strings.TrimPrefix(measurementHex, "0x"))
				if err != nil {
					return fmt.Errorf("parse expected measurement: %w", err)
				}
				if len(expected) != quote.MeasurementSize {
					return fmt.Errorf("expected measurement must be %d bytes, got %d",
						quote.MeasurementSize, len(expected))
				}
			}

			opts := []quote.Option{
				quote.WithSkipOnlineVerification(offline),
				quote.WithLogger(zap.L()),
			}
			if collateralURL != "" {
				opts = append(opts, quote.WithCollateralURL(collateralURL))
			}

			result, err := quote.New(opts...).VerifyQuote(cmd.Context(), raw, expected)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&measurementHex, "measurement", "", "expected enclave measurement (hex)")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the online collateral check")
	cmd.Flags().StringVar(&collateralURL, "collateral-url", "", "override the collateral service endpoint")
	return cmd
}

func readQuoteInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read quote input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
