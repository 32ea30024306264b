package mediator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/attestation"
	"github.com/stakemint/node/internal/chain"
	"github.com/stakemint/node/internal/submitter"
)

// AttestationView is the read-side shape of a stored attestation. A missing
// key yields Exists == false with zero values, never an error.
type AttestationView struct {
	Exists    bool
	Score     uint8
	Timestamp uint64
	Signature []byte
}

// AttestationMediator validates and submits signed score attestations. All
// input validation happens synchronously before any ledger call, so invalid
// input never costs gas. Uniqueness per (owner, skill) and signer
// authenticity are enforced by the ledger; those rejections propagate to the
// caller unchanged.
type AttestationMediator struct {
	sub      GasSafeSubmitter
	client   submitter.LedgerClient
	network  chain.NetworkConfig
	contract common.Address
	logger   *zap.Logger

	// now is split out so tests can pin the submission timestamp.
	now func() time.Time
}

// AttestationMediatorParams collects the construction dependencies.
type AttestationMediatorParams struct {
	Submitter GasSafeSubmitter
	Client    submitter.LedgerClient
	Network   chain.NetworkConfig
	Logger    *zap.Logger
}

// NewAttestationMediator validates the configured contract addresses and
// builds the mediator.
func NewAttestationMediator(params AttestationMediatorParams) (*AttestationMediator, error) {
	if err := chain.ValidateContracts(chain.ContractAddresses{
		Attestation: params.Network.Contracts.Attestation,
		Staking:     params.Network.Contracts.Staking,
	}); err != nil {
		return nil, err
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &AttestationMediator{
		sub:      params.Submitter,
		client:   params.Client,
		network:  params.Network,
		contract: common.HexToAddress(params.Network.Contracts.Attestation),
		logger:   logger.Named("attestation_mediator"),
		now:      time.Now,
	}, nil
}

// SubmitAttestation validates the attestation fields in order (score range,
// signature length, ipfs hash, milestone scores) and then submits it
// gas-safely. The ledger rejects a duplicate attestation for the same
// (owner, skill); that revert is the final answer and is never retried.
func (m *AttestationMediator) SubmitAttestation(
	ctx context.Context,
	owner common.Address,
	skill string,
	score int,
	signature []byte,
	ipfsHash string,
	milestoneScores []uint8,
) (*submitter.Receipt, error) {
	if score < attestation.MinScore || score > attestation.MaxScore {
		return nil, errors.Wrapf(attestation.ErrInvalidScore, "got %d", score)
	}
	if err := attestation.ValidateSignature(signature); err != nil {
		return nil, err
	}
	if ipfsHash == "" {
		return nil, attestation.ErrEmptyIPFSHash
	}
	if len(milestoneScores) == 0 {
		return nil, attestation.ErrEmptyMilestoneScores
	}

	timestamp := uint64(m.now().Unix())
	data, err := attestationABI.Pack("submitAttestation",
		owner, skill, uint8(score), new(big.Int).SetUint64(timestamp),
		signature, ipfsHash, milestoneScores)
	if err != nil {
		return nil, errors.Wrap(err, "encode submitAttestation call")
	}

	receipt, err := m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data})
	if err != nil {
		return nil, err
	}
	m.logger.Info("attestation submitted",
		zap.String("owner", owner.Hex()),
		zap.String("skill", skill),
		zap.Int("score", score),
		zap.String("ipfs_hash", ipfsHash),
		zap.String("tx_hash", receipt.Hash.Hex()))
	return receipt, nil
}

// VerifyAttestation reads the stored attestation for (owner, skill). Missing
// keys return Exists=false with a zero score; only connectivity failures
// produce an error.
func (m *AttestationMediator) VerifyAttestation(ctx context.Context, owner common.Address, skill string) (*AttestationView, error) {
	data, err := attestationABI.Pack("verifyAttestation", owner, skill)
	if err != nil {
		return nil, errors.Wrap(err, "encode verifyAttestation call")
	}

	out, err := m.client.CallContract(ctx, ethereum.CallMsg{To: &m.contract, Data: data}, nil)
	if err != nil {
		return nil, &submitter.NetworkError{Op: "read attestation", Err: err}
	}

	values, err := attestationABI.Unpack("verifyAttestation", out)
	if err != nil {
		return nil, errors.Wrap(err, "decode verifyAttestation result")
	}

	view := &AttestationView{
		Exists:    values[0].(bool),
		Score:     values[1].(uint8),
		Signature: values[3].([]byte),
	}
	if ts, ok := values[2].(*big.Int); ok {
		view.Timestamp = ts.Uint64()
	}
	if !view.Exists {
		// Normalize: the zero view for a missing key regardless of what the
		// contract returned alongside the flag.
		return &AttestationView{}, nil
	}
	return view, nil
}

// GetAttestationHistory lists every skill the owner holds an attestation
// for.
func (m *AttestationMediator) GetAttestationHistory(ctx context.Context, owner common.Address) ([]string, error) {
	data, err := attestationABI.Pack("getAttestationHistory", owner)
	if err != nil {
		return nil, errors.Wrap(err, "encode getAttestationHistory call")
	}

	out, err := m.client.CallContract(ctx, ethereum.CallMsg{To: &m.contract, Data: data}, nil)
	if err != nil {
		return nil, &submitter.NetworkError{Op: "read attestation history", Err: err}
	}

	values, err := attestationABI.Unpack("getAttestationHistory", out)
	if err != nil {
		return nil, errors.Wrap(err, "decode getAttestationHistory result")
	}
	return values[0].([]string), nil
}

// UpdateAttestor rotates the attestor key the contract accepts signatures
// from. Owner-gated on the contract.
func (m *AttestationMediator) UpdateAttestor(ctx context.Context, newAttestor common.Address) (*submitter.Receipt, error) {
	data, err := attestationABI.Pack("updateAttestor", newAttestor)
	if err != nil {
		return nil, errors.Wrap(err, "encode updateAttestor call")
	}
	return m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data})
}
