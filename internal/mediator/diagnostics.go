package mediator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stakemint/node/internal/chain"
	"github.com/stakemint/node/internal/submitter"
)

// ContractStatus reports reachability of one deployed contract. Error holds
// the underlying failure reason when Connected is false.
type ContractStatus struct {
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// NetworkStatus echoes the resolved network metadata.
type NetworkStatus struct {
	ChainID uint64 `json:"chainId"`
	Name    string `json:"name"`
	RPCURL  string `json:"rpcUrl"`
}

// ConnectionReport is the result of a diagnostic sweep. Success is true only
// when both contracts are reachable. Connectivity failures populate the
// per-contract Error; the sweep itself never fails.
type ConnectionReport struct {
	Success   bool      `json:"success"`
	Network   NetworkStatus `json:"network"`
	Contracts struct {
		Attestation ContractStatus `json:"attestation"`
		Staking     ContractStatus `json:"staking"`
	} `json:"contracts"`
	Timestamp time.Time `json:"timestamp"`
}

// Diagnostics probes the configured contracts over the ledger client.
type Diagnostics struct {
	client  submitter.LedgerClient
	network chain.NetworkConfig
	logger  *zap.Logger
}

// NewDiagnostics builds a diagnostic prober for the resolved network.
func NewDiagnostics(client submitter.LedgerClient, network chain.NetworkConfig, logger *zap.Logger) *Diagnostics {
	if logger == nil {
		logger = zap.L()
	}
	return &Diagnostics{
		client:  client,
		network: network,
		logger:  logger.Named("diagnostics"),
	}
}

// TestConnection checks both contracts concurrently and reports per-contract
// state. A contract counts as connected when the address holds code.
func (d *Diagnostics) TestConnection(ctx context.Context) *ConnectionReport {
	report := &ConnectionReport{
		Network: NetworkStatus{
			ChainID: d.network.ChainID,
			Name:    d.network.Name,
			RPCURL:  d.network.RPCURL,
		},
		Timestamp: time.Now().UTC(),
	}

	var g errgroup.Group
	g.Go(func() error {
		report.Contracts.Attestation = d.probe(ctx, d.network.Contracts.Attestation)
		return nil
	})
	g.Go(func() error {
		report.Contracts.Staking = d.probe(ctx, d.network.Contracts.Staking)
		return nil
	})
	_ = g.Wait() // probes record their own failures

	report.Success = report.Contracts.Attestation.Connected && report.Contracts.Staking.Connected
	if !report.Success {
		d.logger.Warn("connection check failed",
			zap.String("attestation_error", report.Contracts.Attestation.Error),
			zap.String("staking_error", report.Contracts.Staking.Error))
	}
	return report
}

func (d *Diagnostics) probe(ctx context.Context, address string) ContractStatus {
	status := ContractStatus{Address: address}
	if !common.IsHexAddress(address) {
		status.Error = "malformed contract address"
		return status
	}

	code, err := d.client.CodeAt(ctx, common.HexToAddress(address), nil)
	switch {
	case err != nil:
		status.Error = err.Error()
	case len(code) == 0:
		status.Error = "no contract code at address"
	default:
		status.Connected = true
	}
	return status
}
