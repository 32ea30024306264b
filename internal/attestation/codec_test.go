package attestation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func samplePayload() *Payload {
	return &Payload{
		Owner:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Skill:           "rust-programming",
		Score:           85,
		Timestamp:       1735689600,
		IPFSHash:        "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		MilestoneScores: []uint8{80, 90, 85, 70, 95},
	}
}

func TestPayloadValidate(t *testing.T) {
	require.NoError(t, samplePayload().Validate())
}

func TestPayloadValidate_ScoreOutOfRange(t *testing.T) {
	p := samplePayload()
	p.Score = 101
	require.ErrorIs(t, p.Validate(), ErrInvalidScore)
}

func TestPayloadValidate_EmptyIPFSHash(t *testing.T) {
	p := samplePayload()
	p.IPFSHash = ""
	require.ErrorIs(t, p.Validate(), ErrEmptyIPFSHash)
}

func TestPayloadValidate_EmptyMilestoneScores(t *testing.T) {
	p := samplePayload()
	p.MilestoneScores = nil
	require.ErrorIs(t, p.Validate(), ErrEmptyMilestoneScores)
}

func TestPayloadValidate_MilestoneScoreOutOfRange(t *testing.T) {
	p := samplePayload()
	p.MilestoneScores = []uint8{50, 120}
	require.ErrorIs(t, p.Validate(), ErrInvalidScore)
}

func TestSigningBytes_Deterministic(t *testing.T) {
	a := samplePayload().SigningBytes()
	b := samplePayload().SigningBytes()
	require.Equal(t, a, b)
	require.Equal(t, a[0], byte(codecVersion))

	// Any field change must change the digest.
	mutated := samplePayload()
	mutated.Score = 86
	require.NotEqual(t, samplePayload().Digest(), mutated.Digest())

	mutated = samplePayload()
	mutated.Skill = "go-programming"
	require.NotEqual(t, samplePayload().Digest(), mutated.Digest())
}

func TestValidateSignature(t *testing.T) {
	require.NoError(t, ValidateSignature(make([]byte, SignatureLength)))
	require.ErrorIs(t, ValidateSignature(make([]byte, 64)), ErrInvalidSignatureLength)
	require.ErrorIs(t, ValidateSignature(nil), ErrInvalidSignatureLength)
}
