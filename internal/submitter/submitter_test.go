package submitter

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger is an in-memory LedgerClient that mines anything it receives.
type fakeLedger struct {
	mu sync.Mutex

	estimate    uint64
	estimateErr error
	gasPriceErr error
	sendErr     error

	sent       []*types.Transaction
	minedBlock uint64
	status     uint64

	// head values returned by successive BlockNumber calls; the last value
	// repeats once exhausted.
	heads     []uint64
	headCalls int

	receiptPollsBeforeFound int
	receiptPolls            int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		estimate:   100000,
		minedBlock: 10,
		status:     types.ReceiptStatusSuccessful,
		heads:      []uint64{11}, // mined block + 1 => 2 confirmations
	}
}

func (f *fakeLedger) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeLedger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeLedger) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeLedger) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeLedger) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptPolls++
	if f.receiptPolls <= f.receiptPollsBeforeFound {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{
		Status:      f.status,
		BlockNumber: new(big.Int).SetUint64(f.minedBlock),
		GasUsed:     f.estimate,
		TxHash:      txHash,
	}, nil
}

func (f *fakeLedger) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.headCalls
	if idx >= len(f.heads) {
		idx = len(f.heads) - 1
	}
	f.headCalls++
	return f.heads[idx], nil
}

func (f *fakeLedger) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeLedger) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func newTestSubmitter(t *testing.T, ledger *fakeLedger) *Submitter {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewPrivateKeySigner("0x" + common.Bytes2Hex(crypto.FromECDSA(key)))
	require.NoError(t, err)
	return New(ledger, signer, big.NewInt(11155111), zap.NewNop())
}

func shortenPollIntervals(t *testing.T) {
	t.Helper()
	oldReceipt, oldConfirm := receiptPollInterval, confirmPollInterval
	receiptPollInterval = time.Millisecond
	confirmPollInterval = time.Millisecond
	t.Cleanup(func() {
		receiptPollInterval = oldReceipt
		confirmPollInterval = oldConfirm
	})
}

func testCall() Call {
	return Call{
		To:    common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Data:  []byte{0x01, 0x02},
		Value: big.NewInt(0),
	}
}

func TestBufferedGasLimit_CeilOfTwentyPercent(t *testing.T) {
	cases := map[uint64]uint64{
		0:      0,
		1:      2, // 1.2 rounds up
		5:      6,
		10:     12,
		21000:  25200,
		99999:  119999, // 119998.8 rounds up
		100000: 120000,
	}
	for estimate, want := range cases {
		require.Equal(t, want, BufferedGasLimit(estimate), "estimate %d", estimate)
	}
}

func TestSubmit_AppliesGasBuffer(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	s := newTestSubmitter(t, ledger)

	receipt, err := s.Submit(context.Background(), testCall())
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, uint64(10), receipt.BlockNumber)

	require.Len(t, ledger.sent, 1)
	require.Equal(t, BufferedGasLimit(ledger.estimate), ledger.sent[0].Gas())
}

func TestSubmit_WaitsForTwoConfirmations(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	// Head sits at the mined block (1 confirmation) twice before advancing.
	ledger.heads = []uint64{10, 10, 11}
	s := newTestSubmitter(t, ledger)

	_, err := s.Submit(context.Background(), testCall())
	require.NoError(t, err)
	require.Equal(t, 3, ledger.headCalls)
}

func TestSubmit_PollsUntilReceiptFound(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	ledger.receiptPollsBeforeFound = 3
	s := newTestSubmitter(t, ledger)

	_, err := s.Submit(context.Background(), testCall())
	require.NoError(t, err)
	require.Equal(t, 4, ledger.receiptPolls)
}

func TestSubmit_EstimateRevertPropagatesWithoutBroadcast(t *testing.T) {
	ledger := newFakeLedger()
	ledger.estimateErr = errors.New("execution reverted: DuplicateStake")
	s := newTestSubmitter(t, ledger)

	_, err := s.Submit(context.Background(), testCall())
	require.Error(t, err)
	require.Contains(t, err.Error(), "DuplicateStake")
	require.Empty(t, ledger.sent)
	require.False(t, IsNetworkError(err))
}

func TestSubmit_GasPriceFailureIsNetworkError(t *testing.T) {
	ledger := newFakeLedger()
	ledger.gasPriceErr = errors.New("connection refused")
	s := newTestSubmitter(t, ledger)

	_, err := s.Submit(context.Background(), testCall())
	require.True(t, IsNetworkError(err))
	require.Empty(t, ledger.sent)
}

func TestSubmit_MinedRevertReturnsErrTransactionReverted(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	ledger.status = types.ReceiptStatusFailed
	s := newTestSubmitter(t, ledger)

	_, err := s.Submit(context.Background(), testCall())
	require.ErrorIs(t, err, ErrTransactionReverted)
}

func TestSubmit_ContextCancelDuringConfirmationWait(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	ledger.heads = []uint64{10} // never advances
	s := newTestSubmitter(t, ledger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Submit(ctx, testCall())
	require.True(t, IsNetworkError(err))
}

func TestSubmit_SerializesBroadcastWindow(t *testing.T) {
	shortenPollIntervals(t)
	ledger := newFakeLedger()
	s := newTestSubmitter(t, ledger)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(context.Background(), testCall())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, ledger.sent, 8)
	seen := make(map[uint64]bool)
	for _, tx := range ledger.sent {
		require.False(t, seen[tx.Nonce()], "nonce %d reused", tx.Nonce())
		seen[tx.Nonce()] = true
	}
}
