package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/config"
	"github.com/stakemint/node/internal/mediator"
	"github.com/stakemint/node/internal/monitor"
)

const defaultMonitorInterval = 5 * time.Minute

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run periodic connection sweeps until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			network := cfg.Network()

			client, err := ethclient.DialContext(cmd.Context(), network.RPCURL)
			if err != nil {
				return fmt.Errorf("dial rpc endpoint %s: %w", network.RPCURL, err)
			}
			defer client.Close()

			interval := cfg.HealthCheckInterval
			if interval <= 0 {
				interval = defaultMonitorInterval
			}

			diag := mediator.NewDiagnostics(client, network, zap.L())
			mon := monitor.New(diag, interval, zap.L())
			if err := mon.Start(); err != nil {
				return err
			}
			defer mon.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			select {
			case s := <-sig:
				zap.L().Info("shutting down", zap.String("signal", s.String()))
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
}
