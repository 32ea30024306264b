package attestation

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// codecVersion identifies the signing-bytes layout. Bump it if the encoding
// ever changes so old signatures cannot be replayed against a new layout.
const codecVersion = 1

// Score bounds for both the final score and every milestone score.
const (
	MinScore = 0
	MaxScore = 100
)

// SignatureLength is the raw [R || S || V] length of an EVM-compatible
// secp256k1 signature.
const SignatureLength = 65

// Validation failures, checked before any ledger interaction so invalid
// input never costs gas.
var (
	ErrInvalidScore           = errors.New("score must be between 0 and 100")
	ErrInvalidSignatureLength = errors.New("signature must be exactly 65 bytes")
	ErrEmptyIPFSHash          = errors.New("ipfs hash must not be empty")
	ErrEmptyMilestoneScores   = errors.New("milestone scores must not be empty")
)

// Payload is the attestation structure covered by the TEE key's signature.
// The ledger stores it immutably per (owner, skill).
type Payload struct {
	Owner           common.Address
	Skill           string
	Score           uint8
	Timestamp       uint64
	IPFSHash        string
	MilestoneScores []uint8
}

// Validate applies the pre-submission rules in order: score range, ipfs
// hash presence, milestone scores presence and range.
func (p *Payload) Validate() error {
	if p.Score > MaxScore {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, p.Score)
	}
	if p.IPFSHash == "" {
		return ErrEmptyIPFSHash
	}
	if len(p.MilestoneScores) == 0 {
		return ErrEmptyMilestoneScores
	}
	for i, s := range p.MilestoneScores {
		if s > MaxScore {
			return fmt.Errorf("%w: milestone %d scored %d", ErrInvalidScore, i, s)
		}
	}
	return nil
}

// SigningBytes returns the canonical byte encoding covered by the attestor
// signature: fixed-width integers followed by length-prefixed variable
// sections (little-endian 4-byte prefixes).
//
// Layout:
//
//	1 byte    codec version
//	20 bytes  owner address
//	4 + n     skill (length-prefixed)
//	1 byte    score
//	8 bytes   timestamp (big-endian)
//	4 + m     ipfs hash (length-prefixed)
//	4 + k     milestone scores (length-prefixed, one byte each)
func (p *Payload) SigningBytes() []byte {
	buf := make([]byte, 0, 1+common.AddressLength+4+len(p.Skill)+1+8+4+len(p.IPFSHash)+4+len(p.MilestoneScores))
	buf = append(buf, codecVersion)
	buf = append(buf, p.Owner.Bytes()...)
	buf = appendLengthPrefixed(buf, []byte(p.Skill))
	buf = append(buf, p.Score)
	buf = binary.BigEndian.AppendUint64(buf, p.Timestamp)
	buf = appendLengthPrefixed(buf, []byte(p.IPFSHash))
	buf = appendLengthPrefixed(buf, p.MilestoneScores)
	return buf
}

// Digest computes keccak256(SigningBytes()); this is the 32-byte hash the
// attestor signs and the ledger verifies.
func (p *Payload) Digest() common.Hash {
	return crypto.Keccak256Hash(p.SigningBytes())
}

// ValidateSignature checks only the raw length; authenticity is the
// ledger's concern.
func ValidateSignature(sig []byte) error {
	if len(sig) != SignatureLength {
		return fmt.Errorf("%w: got %d", ErrInvalidSignatureLength, len(sig))
	}
	return nil
}

func appendLengthPrefixed(buf, section []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(section)))
	return append(buf, section...)
}
