package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/config"
	"github.com/stakemint/node/internal/mediator"
)

const checkTimeout = 30 * time.Second

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the RPC endpoint and both settlement contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			network := cfg.Network()

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			client, err := ethclient.DialContext(ctx, network.RPCURL)
			if err != nil {
				// Endpoint unreachable: report it the same way as a failed
				// probe instead of crashing.
				report := &mediator.ConnectionReport{Timestamp: time.Now().UTC()}
				report.Network = mediator.NetworkStatus{
					ChainID: network.ChainID, Name: network.Name, RPCURL: network.RPCURL,
				}
				report.Contracts.Attestation = mediator.ContractStatus{
					Address: network.Contracts.Attestation, Error: err.Error(),
				}
				report.Contracts.Staking = mediator.ContractStatus{
					Address: network.Contracts.Staking, Error: err.Error(),
				}
				return printJSON(cmd, report)
			}
			defer client.Close()

			diag := mediator.NewDiagnostics(client, network, zap.L())
			return printJSON(cmd, diag.TestConnection(ctx))
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
