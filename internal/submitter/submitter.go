package submitter

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// gasBufferNum/gasBufferDen apply a fixed 20% safety buffer to the gas
	// estimate. The division rounds up; the buffer is never truncated away.
	gasBufferNum = 12
	gasBufferDen = 10

	// requiredConfirmations is how many blocks must include or follow the
	// transaction before Submit returns. The mined block itself counts as
	// the first confirmation.
	requiredConfirmations = 2

)

// Poll cadences are variables so tests can shorten them.
var (
	receiptPollInterval = 2 * time.Second
	confirmPollInterval = 2 * time.Second
)

// LedgerClient is the subset of the RPC client the submitter and mediators
// actually use. *ethclient.Client satisfies it; tests use fakes.
type LedgerClient interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Call is one state-mutating ledger invocation: ABI-encoded calldata plus an
// optional native-token value.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Receipt is the settled outcome of a submitted call.
type Receipt struct {
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
	Logs        []*types.Log
}

// Submitter wraps a ledger client with gas buffering and confirmation
// waiting. Estimate, nonce acquisition, and broadcast are serialized per
// signer to avoid nonce collisions; confirmation waits run outside the lock
// so distinct in-flight submissions confirm concurrently.
type Submitter struct {
	client  LedgerClient
	signer  TxSigner
	chainID *big.Int
	logger  *zap.Logger

	// broadcastMu guards the estimate+nonce+broadcast window. The account
	// nonce is shared mutable state across every caller using this signer.
	broadcastMu sync.Mutex
}

// New builds a Submitter for one signing account on one chain.
func New(client LedgerClient, signer TxSigner, chainID *big.Int, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.L()
	}
	return &Submitter{
		client:  client,
		signer:  signer,
		chainID: chainID,
		logger:  logger.Named("submitter"),
	}
}

// BufferedGasLimit returns ceil(estimate * 1.2) in integer arithmetic.
func BufferedGasLimit(estimate uint64) uint64 {
	return (estimate*gasBufferNum + gasBufferDen - 1) / gasBufferDen
}

// Submit estimates gas, applies the safety buffer, broadcasts, and blocks
// until the transaction has the required confirmations.
//
// A revert from the ledger (during estimation or after mining) propagates
// unchanged and is never retried: the transaction may already have taken
// effect, and retrying a state-mutating call risks duplicate effects. An
// already-broadcast transaction cannot be cancelled — once gas is spent, the
// caller can only stop waiting for confirmation, not undo the effect.
func (s *Submitter) Submit(ctx context.Context, call Call) (*Receipt, error) {
	submissionID := uuid.NewString()
	logger := s.logger.With(zap.String("submission_id", submissionID), zap.String("to", call.To.Hex()))

	signedTx, gasLimit, err := s.broadcast(ctx, call, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("transaction broadcast",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.Uint64("gas_limit", gasLimit))

	receipt, err := s.waitForConfirmations(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.Wrapf(ErrTransactionReverted, "tx %s", signedTx.Hash().Hex())
	}

	logger.Info("transaction confirmed",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return &Receipt{
		Hash:        signedTx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Status:      receipt.Status,
		Logs:        receipt.Logs,
	}, nil
}

// broadcast performs the nonce-sensitive window under the lock: estimate,
// price, nonce, sign, send.
func (s *Submitter) broadcast(ctx context.Context, call Call, logger *zap.Logger) (*types.Transaction, uint64, error) {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	msg := ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &call.To,
		Value: call.Value,
		Data:  call.Data,
	}

	estimate, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation executes the call; a failure here is the ledger
		// rejecting it and is the authoritative answer.
		return nil, 0, errors.Wrap(err, "gas estimation failed")
	}
	gasLimit := BufferedGasLimit(estimate)

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, 0, &NetworkError{Op: "suggest gas price", Err: err}
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return nil, 0, &NetworkError{Op: "fetch nonce", Err: err}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &call.To,
		Value:    call.Value,
		Data:     call.Data,
	})

	signedTx, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "sign transaction")
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, 0, errors.Wrap(err, "broadcast transaction")
	}

	logger.Debug("transaction signed and sent",
		zap.Uint64("nonce", nonce),
		zap.Uint64("estimate", estimate),
		zap.Uint64("gas_limit", gasLimit))

	return signedTx, gasLimit, nil
}

// waitForConfirmations polls for the receipt and then for head progression
// until the transaction has requiredConfirmations blocks on top of it.
func (s *Submitter) waitForConfirmations(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	pollReceipt := func() error {
		r, err := s.client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return err // ethereum.NotFound until mined; retried either way
		}
		receipt = r
		return nil
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(receiptPollInterval), ctx)
	if err := backoff.Retry(pollReceipt, policy); err != nil {
		return nil, &NetworkError{Op: "await receipt", Err: err}
	}

	minedAt := receipt.BlockNumber.Uint64()
	for {
		head, err := s.client.BlockNumber(ctx)
		if err != nil {
			return nil, &NetworkError{Op: "poll head", Err: err}
		}
		if head >= minedAt+requiredConfirmations-1 {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, &NetworkError{Op: "await confirmations", Err: ctx.Err()}
		case <-time.After(confirmPollInterval):
		}
	}
}
