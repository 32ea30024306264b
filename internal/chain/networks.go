package chain

import (
	"fmt"
)

// ContractAddresses holds the deployed addresses the mediators talk to.
type ContractAddresses struct {
	Attestation string
	Staking     string
}

// NetworkConfig describes one settlement network. Resolved once at startup
// and immutable for the lifetime of the mediators built from it.
type NetworkConfig struct {
	ChainID   uint64
	Name      string
	RPCURL    string
	Contracts ContractAddresses
}

// networkTable is the static chain-id registry. Entries carry the public RPC
// endpoint used when no explicit RPC URL is configured.
var networkTable = map[uint64]NetworkConfig{
	1: {
		ChainID: 1,
		Name:    "Mainnet",
		RPCURL:  "https://eth.llamarpc.com",
	},
	5: {
		ChainID: 5,
		Name:    "Goerli",
		RPCURL:  "https://rpc.ankr.com/eth_goerli",
	},
	11155111: {
		ChainID: 11155111,
		Name:    "Sepolia",
		RPCURL:  "https://rpc.sepolia.org",
	},
	11155420: {
		ChainID: 11155420,
		Name:    "Optimism Sepolia",
		RPCURL:  "https://sepolia.optimism.io",
	},
}

// DefaultChainID is used when no chain id is configured.
const DefaultChainID uint64 = 11155111

// ResolveNetwork maps a chain id to its network metadata. Unknown ids resolve
// to the Sepolia entry with the name marked as a fallback; resolution never
// fails so a misconfigured chain id degrades to a testnet instead of taking
// the process down.
func ResolveNetwork(chainID uint64) NetworkConfig {
	if cfg, ok := networkTable[chainID]; ok {
		return cfg
	}
	fallback := networkTable[DefaultChainID]
	fallback.Name = fmt.Sprintf("%s (default)", fallback.Name)
	return fallback
}
