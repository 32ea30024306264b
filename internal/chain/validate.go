package chain

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Credential validation failures. These are configuration errors: they fire
// at construction time, before any network traffic, and callers can branch
// on the kind with errors.Is.
var (
	ErrInvalidPrivateKey         = errors.New("invalid private key: expected 0x-prefixed 64 hex characters")
	ErrInvalidAttestationAddress = errors.New("invalid attestation contract address")
	ErrInvalidStakingAddress     = errors.New("invalid staking contract address")
)

var privateKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidatePrivateKey checks the 0x + 64-hex shape before key parsing is
// attempted, so a truncated or unprefixed key fails with a stable kind
// instead of a library-specific parse error.
func ValidatePrivateKey(key string) error {
	if !privateKeyPattern.MatchString(key) {
		return ErrInvalidPrivateKey
	}
	if _, err := crypto.HexToECDSA(key[2:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return nil
}

// ValidateContracts checks both configured contract addresses independently
// so a report can name every malformed address rather than stopping at the
// first.
func ValidateContracts(addrs ContractAddresses) error {
	var errs []error
	if !common.IsHexAddress(addrs.Attestation) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAttestationAddress, addrs.Attestation))
	}
	if !common.IsHexAddress(addrs.Staking) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidStakingAddress, addrs.Staking))
	}
	return errors.Join(errs...)
}
