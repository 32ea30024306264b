package mediator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/chain"
	"github.com/stakemint/node/internal/submitter"
)

// Refund arithmetic. The pass threshold is inclusive: a final score of
// exactly PassThreshold earns the pass-tier refund.
const (
	PassThreshold = 70
	RefundPctPass = 80
	RefundPctFail = 20

	MilestoneMin = 1
	MilestoneMax = 5
)

// GasSafeSubmitter is the write path used by both mediators. Satisfied by
// *submitter.Submitter; tests substitute a fake.
type GasSafeSubmitter interface {
	Submit(ctx context.Context, call submitter.Call) (*submitter.Receipt, error)
}

// StakeView is the ledger's record for one (owner, skill). A zero StakedAt
// means no record exists. Refunded records persist as history.
type StakeView struct {
	Amount              *big.Int
	StakedAt            uint64
	MilestoneCheckpoint uint8
	AttestationComplete bool
	Refunded            bool
}

// Exists reports whether the ledger holds any record for the key.
func (s *StakeView) Exists() bool { return s != nil && s.StakedAt != 0 }

// Active reports whether the record exists and has not settled.
func (s *StakeView) Active() bool { return s.Exists() && !s.Refunded }

// ClaimResult pairs the settlement receipt with the refund arithmetic that
// was applied.
type ClaimResult struct {
	Receipt   *submitter.Receipt
	RefundPct int64
	Payout    *big.Int
}

// StakeLedgerMediator orchestrates the stake lifecycle against the staking
// contract: Unstaked -> Staked(checkpoint 0..5) -> Settled. Settled is
// terminal; the checkpoint never decreases; refunded flips exactly once.
//
// Local guards mirror the contract's own rules so invalid calls fail before
// any gas is spent. The ledger remains the source of truth: a concurrent
// writer can still win the race, in which case the contract's revert
// propagates through the submitter unchanged.
type StakeLedgerMediator struct {
	sub           GasSafeSubmitter
	client        submitter.LedgerClient
	network       chain.NetworkConfig
	contract      common.Address
	owner         common.Address
	requiredStake *big.Int
	logger        *zap.Logger
}

// StakeMediatorParams collects the construction dependencies.
type StakeMediatorParams struct {
	Submitter     GasSafeSubmitter
	Client        submitter.LedgerClient
	Network       chain.NetworkConfig
	Owner         common.Address
	RequiredStake *big.Int
	Logger        *zap.Logger
}

// NewStakeLedgerMediator validates the configured contract address and
// builds the mediator.
func NewStakeLedgerMediator(params StakeMediatorParams) (*StakeLedgerMediator, error) {
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
	return &StakeLedgerMediator{
		sub:           params.Submitter,
		client:        params.Client,
		network:       params.Network,
		contract:      common.HexToAddress(params.Network.Contracts.Staking),
		owner:         params.Owner,
		requiredStake: params.RequiredStake,
		logger:        logger.Named("stake_mediator"),
	}, nil
}

// Stake deposits exactly the required amount against a skill for the
// mediator's own account.
func (m *StakeLedgerMediator) Stake(ctx context.Context, skill string, amount *big.Int) (*submitter.Receipt, error) {
	if amount == nil || amount.Cmp(m.requiredStake) != 0 {
		return nil, errors.Wrapf(ErrWrongStakeAmount,
			"required %s, got %s", chain.FormatUnits(m.requiredStake), chain.FormatUnits(amount))
	}

	existing, err := m.GetStake(ctx, m.owner, skill)
	if err != nil {
		return nil, err
	}
	if existing.Active() {
		return nil, errors.Wrapf(ErrDuplicateStake, "skill %q", skill)
	}

	data, err := stakingABI.Pack("stake", skill)
	if err != nil {
		return nil, errors.Wrap(err, "encode stake call")
	}

	receipt, err := m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data, Value: amount})
	if err != nil {
		return nil, err
	}
	m.logger.Info("stake recorded",
		zap.String("skill", skill),
		zap.String("amount", chain.FormatUnits(amount)),
		zap.String("tx_hash", receipt.Hash.Hex()))
	return receipt, nil
}

// RecordMilestone advances the checkpoint for an active stake. Milestone ids
// must be in [1,5] and strictly increasing; skipping ahead is allowed, which
// matches the contract's monotonicity rule rather than forcing checkpoint+1
// locally.
func (m *StakeLedgerMediator) RecordMilestone(ctx context.Context, owner common.Address, skill string, milestoneID int) (*submitter.Receipt, error) {
	stake, err := m.GetStake(ctx, owner, skill)
	if err != nil {
		return nil, err
	}
	if !stake.Exists() {
		return nil, errors.Wrapf(ErrNoActiveStake, "owner %s skill %q", owner.Hex(), skill)
	}
	if stake.Refunded {
		return nil, errors.Wrapf(ErrAlreadySettled, "owner %s skill %q", owner.Hex(), skill)
	}
	if milestoneID < MilestoneMin || milestoneID > MilestoneMax {
		return nil, errors.Wrapf(ErrInvalidMilestoneID, "got %d", milestoneID)
	}
	if milestoneID <= int(stake.MilestoneCheckpoint) {
		return nil, errors.Wrapf(ErrDuplicateMilestone,
			"id %d, checkpoint %d", milestoneID, stake.MilestoneCheckpoint)
	}

	data, err := stakingABI.Pack("recordMilestone", owner, skill, uint8(milestoneID))
	if err != nil {
		return nil, errors.Wrap(err, "encode recordMilestone call")
	}

	receipt, err := m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data})
	if err != nil {
		return nil, err
	}
	m.logger.Info("milestone recorded",
		zap.String("skill", skill),
		zap.Int("milestone", milestoneID),
		zap.String("tx_hash", receipt.Hash.Hex()))
	return receipt, nil
}

// ClaimRefund settles an active stake against the final score. The refund is
// 80% of the stake at or above the pass threshold, 20% below it; the
// remainder accrues to the contract treasury. A second claim for the same
// key always fails, locally and on the ledger, so a double payout is
// impossible.
func (m *StakeLedgerMediator) ClaimRefund(ctx context.Context, owner common.Address, skill string, finalScore int) (*ClaimResult, error) {
	stake, err := m.GetStake(ctx, owner, skill)
	if err != nil {
		return nil, err
	}
	if !stake.Exists() {
		return nil, errors.Wrapf(ErrNoActiveStake, "owner %s skill %q", owner.Hex(), skill)
	}
	if stake.Refunded {
		return nil, errors.Wrapf(ErrAlreadySettled, "owner %s skill %q", owner.Hex(), skill)
	}

	pct := RefundPct(finalScore)
	payout := RefundAmount(stake.Amount, finalScore)

	data, err := stakingABI.Pack("claimRefund", owner, skill, uint8(finalScore))
	if err != nil {
		return nil, errors.Wrap(err, "encode claimRefund call")
	}

	receipt, err := m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data})
	if err != nil {
		return nil, err
	}
	m.logger.Info("refund claimed",
		zap.String("skill", skill),
		zap.Int("final_score", finalScore),
		zap.Int64("refund_pct", pct),
		zap.String("payout", chain.FormatUnits(payout)),
		zap.String("tx_hash", receipt.Hash.Hex()))

	return &ClaimResult{Receipt: receipt, RefundPct: pct, Payout: payout}, nil
}

// WithdrawTreasury sweeps the accrued unrefunded remainders to the protocol
// operator. Operator-gated on the contract; nothing schedules this
// automatically.
func (m *StakeLedgerMediator) WithdrawTreasury(ctx context.Context) (*submitter.Receipt, error) {
	data, err := stakingABI.Pack("withdrawTreasury")
	if err != nil {
		return nil, errors.Wrap(err, "encode withdrawTreasury call")
	}
	return m.sub.Submit(ctx, submitter.Call{To: m.contract, Data: data})
}

// GetStake reads the ledger record for (owner, skill). A missing record is
// not an error; the returned view reports Exists() == false.
func (m *StakeLedgerMediator) GetStake(ctx context.Context, owner common.Address, skill string) (*StakeView, error) {
	data, err := stakingABI.Pack("stakes", owner, skill)
	if err != nil {
		return nil, errors.Wrap(err, "encode stakes call")
	}

	out, err := m.client.CallContract(ctx, ethereum.CallMsg{To: &m.contract, Data: data}, nil)
	if err != nil {
		return nil, &submitter.NetworkError{Op: "read stake", Err: err}
	}

	values, err := stakingABI.Unpack("stakes", out)
	if err != nil {
		return nil, errors.Wrap(err, "decode stakes result")
	}

	view := &StakeView{
		Amount:              values[0].(*big.Int),
		MilestoneCheckpoint: values[2].(uint8),
		AttestationComplete: values[3].(bool),
		Refunded:            values[4].(bool),
	}
	if ts, ok := values[1].(*big.Int); ok {
		view.StakedAt = ts.Uint64()
	}
	return view, nil
}

// RefundPct maps a final score to its refund percentage. The threshold is
// inclusive.
func RefundPct(finalScore int) int64 {
	if finalScore >= PassThreshold {
		return RefundPctPass
	}
	return RefundPctFail
}

// RefundAmount computes amount * refundPct / 100 in integer arithmetic.
func RefundAmount(amount *big.Int, finalScore int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	payout := new(big.Int).Mul(amount, big.NewInt(RefundPct(finalScore)))
	return payout.Div(payout, big.NewInt(100))
}
