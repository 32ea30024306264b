package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/stakemint/node/internal/chain"
)

// Config is the environment-sourced configuration surface. Credentials are
// validated eagerly so a malformed key or address fails at startup with a
// typed error instead of at first submission.
type Config struct {
	PrivateKey          string `env:"STAKEMINT_PRIVATE_KEY"`
	AttestationContract string `env:"STAKEMINT_ATTESTATION_CONTRACT"`
	StakingContract     string `env:"STAKEMINT_STAKING_CONTRACT"`
	RPCURL              string `env:"STAKEMINT_RPC_URL"`
	ChainID             uint64 `env:"STAKEMINT_CHAIN_ID"`

	CollateralURL          string `env:"STAKEMINT_COLLATERAL_URL"`
	SkipOnlineVerification bool   `env:"STAKEMINT_SKIP_ONLINE_VERIFICATION" envDefault:"false"`

	RequiredStake       string        `env:"STAKEMINT_REQUIRED_STAKE" envDefault:"0.001"`
	HealthCheckInterval time.Duration `env:"STAKEMINT_HEALTH_CHECK_INTERVAL"`
}

// Load reads the environment and validates credentials and amounts.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks each credential independently so every malformed value is
// reported, not just the first.
func (c *Config) Validate() error {
	if c.PrivateKey != "" {
		if err := chain.ValidatePrivateKey(c.PrivateKey); err != nil {
			return err
		}
	}
	if c.AttestationContract != "" || c.StakingContract != "" {
		if err := chain.ValidateContracts(chain.ContractAddresses{
			Attestation: c.AttestationContract,
			Staking:     c.StakingContract,
		}); err != nil {
			return err
		}
	}
	if _, err := chain.ParseUnits(c.RequiredStake); err != nil {
		return fmt.Errorf("required stake: %w", err)
	}
	return nil
}

// Network resolves the configured chain id and overlays any configured RPC
// endpoint and contract addresses onto the static entry.
func (c *Config) Network() chain.NetworkConfig {
	network := chain.ResolveNetwork(c.ChainID)
	if c.RPCURL != "" {
		network.RPCURL = c.RPCURL
	}
	network.Contracts = chain.ContractAddresses{
		Attestation: c.AttestationContract,
		Staking:     c.StakingContract,
	}
	return network
}

// RequiredStakeWei returns the required stake in wei. Validate has already
// proven the value parses.
func (c *Config) RequiredStakeWei() *big.Int {
	wei, err := chain.ParseUnits(c.RequiredStake)
	if err != nil {
		panic(fmt.Sprintf("required stake %q failed to parse after validation: %v", c.RequiredStake, err))
	}
	return wei
}
