package attestation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// toCompactRecoveryID normalizes the V byte to the compact {0,1} form that
// secp256k1 recovery expects. Accepts the raw {0,1} form, the EVM {27,28}
// form, and EIP-155 style offsets up to two chain-id doublings.
func toCompactRecoveryID(v byte) (byte, error) {
	switch {
	case v <= 1:
		return v, nil
	case v >= 27 && v <= 34:
		return (v - 27) & 1, nil
	default:
		return 0, fmt.Errorf("invalid recovery id %d", v)
	}
}

// RecoverSigner recovers the address that produced the signature over the
// payload's digest. The input signature is not mutated.
func RecoverSigner(p *Payload, sig []byte) (common.Address, error) {
	if err := ValidateSignature(sig); err != nil {
		return common.Address{}, err
	}

	norm := append([]byte(nil), sig...)
	recoveryID, err := toCompactRecoveryID(norm[64])
	if err != nil {
		return common.Address{}, fmt.Errorf("normalise recovery id: %w", err)
	}
	norm[64] = recoveryID

	digest := p.Digest()
	pubkey, err := crypto.SigToPub(digest.Bytes(), norm)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key from signature: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// VerifySignature reports whether the signature over the payload was
// produced by the expected attestor key.
func VerifySignature(p *Payload, sig []byte, attestor common.Address) (bool, error) {
	recovered, err := RecoverSigner(p, sig)
	if err != nil {
		return false, err
	}
	if recovered != attestor {
		return false, fmt.Errorf("signature verification failed: recovered %s does not match attestor %s",
			recovered.Hex(), attestor.Hex())
	}
	return true, nil
}
