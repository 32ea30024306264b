package attestation

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces EVM-compatible signatures over attestation payloads using
// the attestor's secp256k1 private key. Safe for concurrent use.
type Signer struct {
	mu         sync.RWMutex
	privateKey *ecdsa.PrivateKey
}

// NewSigner parses a 0x-prefixed hex private key into a Signer.
func NewSigner(hexKey string) (*Signer, error) {
	trimmed := strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse attestor private key: %w", err)
	}
	return &Signer{privateKey: key}, nil
}

// SignPayload validates the payload and signs its digest, returning a
// 65-byte [R || S || V] signature with V in EVM form {27,28}.
func (s *Signer) SignPayload(p *Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	digest := p.Digest()
	return s.SignDigest(digest.Bytes())
}

// SignDigest signs a 32-byte digest that has already been hashed.
func (s *Signer) SignDigest(digest []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.privateKey == nil {
		return nil, fmt.Errorf("private key not initialized")
	}
	if len(digest) != crypto.DigestLength {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", crypto.DigestLength, len(digest))
	}

	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	// crypto.Sign returns V in compact {0,1} form; shift to EVM {27,28}.
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	sig[64] = (v & 1) + 27
	return sig, nil
}

// Address returns the attestor address derived from the signing key.
func (s *Signer) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.privateKey == nil {
		return ""
	}
	return crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex()
}
