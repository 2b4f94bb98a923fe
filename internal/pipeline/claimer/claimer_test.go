package claimer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/alert"
	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	chainmocks "github.com/emperorhan/htlc-reward-claimer/internal/chain/mocks"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/nonce"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/memory"
	storemocks "github.com/emperorhan/htlc-reward-claimer/internal/store/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testSwapID = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testSecret = "42"
	testWallet = "0xABCDEF0000000000000000000000000000000001"
)

var testNow = time.Unix(1_700_000_000, 0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingAlerter) Send(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type fixture struct {
	client  *chainmocks.MockClient
	pending *chainmocks.MockPendingTx
	txs     *memory.TransactionRepo
	nonces  *memory.NonceStore
	alerts  *recordingAlerter
	claimer *Claimer
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	client := chainmocks.NewMockClient(ctrl)
	client.EXPECT().Network().Return(model.NetworkOptimismSepolia).AnyTimes()
	client.EXPECT().WalletAddress().Return(testWallet).AnyTimes()

	f := &fixture{
		client:  client,
		pending: chainmocks.NewMockPendingTx(ctrl),
		txs:     memory.NewTransactionRepo(),
		nonces:  memory.NewNonceStore(),
		alerts:  &recordingAlerter{},
	}
	f.claimer = New(
		map[model.Network]chain.Client{model.NetworkOptimismSepolia: client},
		nonce.New(f.nonces, nonce.Config{}, testLogger()),
		f.txs,
		f.alerts,
		Config{},
		testLogger(),
	).WithClock(func() time.Time { return testNow })
	return f
}

func claimJob(t *testing.T) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(model.ClaimJob{SwapID: testSwapID, Secret: testSecret, Network: model.NetworkOptimismSepolia})
	require.NoError(t, err)
	return &queue.Job{ID: model.ClaimJobID(testSwapID), Name: queue.JobProcessReward, Payload: payload}
}

// expectPriced stubs the checks that run before the nonce is allocated.
func (f *fixture) expectPriced(balance *big.Int) {
	f.client.EXPECT().IsClaimable(gomock.Any(), testSwapID).Return(true, nil)
	f.client.EXPECT().EstimateGas(gomock.Any(), testSwapID, testSecret).Return(uint64(60_000), nil)
	f.client.EXPECT().FeeSuggestion(gomock.Any()).Return(chain.FeeSuggestion{GasPrice: gwei(10)}, nil)
	f.client.EXPECT().WalletBalance(gomock.Any()).Return(balance, nil)
}

func (f *fixture) cachedNonce(t *testing.T) (uint64, bool) {
	t.Helper()
	n, ok, err := f.nonces.GetNonce(context.Background(), nonce.Key(model.NetworkOptimismSepolia, testWallet))
	require.NoError(t, err)
	return n, ok
}

func (f *fixture) rows(t *testing.T) []model.Transaction {
	t.Helper()
	rows, err := f.txs.FindBySwapID(context.Background(), testSwapID)
	require.NoError(t, err)
	return rows
}

func TestHandle_ClaimsReward(t *testing.T) {
	f := newFixture(t)
	f.expectPriced(gwei(1_000_000))
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(7), nil)

	var submitted chain.TxOptions
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, opts chain.TxOptions) (chain.PendingTx, error) {
			submitted = opts
			return f.pending, nil
		})
	f.pending.EXPECT().Hash().Return("0xfeed").AnyTimes()
	f.pending.EXPECT().Wait(gomock.Any()).Return(&chain.Receipt{Success: true, BlockNumber: 99, GasUsed: 50_000, EffectiveGasPrice: gwei(11)}, nil)

	res, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.NoError(t, err)
	assert.Equal(t, queue.DispositionComplete, res.Disposition)

	assert.Equal(t, uint64(7), submitted.Nonce)
	assert.Equal(t, uint64(60_000), submitted.GasLimit)
	assert.Equal(t, 0, gwei(12).Cmp(submitted.GasPrice))

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TxStatusSuccess, rows[0].Status)
	assert.Equal(t, "0xfeed", *rows[0].Hash)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(50_000), gwei(11)).String(), rows[0].Fee)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", rows[0].Address)
	assert.Equal(t, model.NetworkOptimismSepolia, rows[0].Network)
	assert.Nil(t, rows[0].Error)

	n, ok := f.cachedNonce(t)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), n)
}

func TestHandle_DynamicFeeTransaction(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().IsClaimable(gomock.Any(), testSwapID).Return(true, nil)
	f.client.EXPECT().EstimateGas(gomock.Any(), testSwapID, testSecret).Return(uint64(50_000), nil)
	f.client.EXPECT().FeeSuggestion(gomock.Any()).Return(chain.FeeSuggestion{
		GasPrice:             gwei(4),
		MaxFeePerGas:         gwei(7),
		MaxPriorityFeePerGas: gwei(1),
		BaseFee:              gwei(3),
	}, nil)
	f.client.EXPECT().WalletBalance(gomock.Any()).Return(gwei(1_000_000), nil)
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(0), nil)

	var submitted chain.TxOptions
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, opts chain.TxOptions) (chain.PendingTx, error) {
			submitted = opts
			return f.pending, nil
		})
	f.pending.EXPECT().Hash().Return("0xfeed").AnyTimes()
	f.pending.EXPECT().Wait(gomock.Any()).Return(&chain.Receipt{Success: true, GasUsed: 40_000, EffectiveGasPrice: gwei(5)}, nil)

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.NoError(t, err)

	require.True(t, submitted.IsDynamicFee())
	assert.Equal(t, 0, gwei(8).Cmp(submitted.MaxFeePerGas))
	assert.Equal(t, 0, gwei(2).Cmp(submitted.MaxPriorityFeePerGas))

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TxStatusSuccess, rows[0].Status)
}

func TestHandle_AlreadyClaimedDropsJob(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().IsClaimable(gomock.Any(), testSwapID).Return(false, nil)

	res, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.NoError(t, err)
	assert.Equal(t, queue.DispositionRemove, res.Disposition)
	assert.Equal(t, "already_claimed", res.Reason)
	assert.Empty(t, f.rows(t))
}

func TestHandle_InsufficientBalanceDefers(t *testing.T) {
	f := newFixture(t)
	f.expectPriced(big.NewInt(1))

	res, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.NoError(t, err)
	assert.Equal(t, queue.DispositionDefer, res.Disposition)
	assert.Equal(t, testNow.Add(DefaultDeferInterval), res.Until)

	require.Len(t, f.alerts.alerts, 1)
	a := f.alerts.alerts[0]
	assert.Equal(t, alert.AlertTypeInsufficientBalance, a.Type)
	assert.Equal(t, "OPTIMISM_SEPOLIA", a.Network)
	assert.Equal(t, "1", a.Fields["balance_wei"])

	_, ok := f.cachedNonce(t)
	assert.False(t, ok, "no nonce is consumed")
	assert.Empty(t, f.rows(t))
}

func TestHandle_NonceConflictResetsCacheAndRetries(t *testing.T) {
	f := newFixture(t)
	f.expectPriced(gwei(1_000_000))
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(3), nil)
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).
		Return(nil, errors.New("nonce too low: next nonce 5, tx nonce 3"))

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.Error(t, err)
	assert.False(t, retry.IsMarkedTerminal(err))
	assert.Equal(t, FailureNonceConflict, Classify(err))

	_, ok := f.cachedNonce(t)
	assert.False(t, ok, "cached nonce cleared before the error propagates")

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TxStatusPending, rows[0].Status)
	require.NotNil(t, rows[0].Error)
	assert.Contains(t, *rows[0].Error, "nonce too low")
}

func TestHandle_GasEstimateFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().IsClaimable(gomock.Any(), testSwapID).Return(true, nil)
	f.client.EXPECT().EstimateGas(gomock.Any(), testSwapID, testSecret).Return(uint64(0), errors.New("execution reverted"))
	f.client.EXPECT().FeeSuggestion(gomock.Any()).Return(chain.FeeSuggestion{GasPrice: gwei(1)}, nil)
	f.client.EXPECT().WalletBalance(gomock.Any()).Return(gwei(1_000_000), nil)
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(1), nil)

	var submitted chain.TxOptions
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, opts chain.TxOptions) (chain.PendingTx, error) {
			submitted = opts
			return f.pending, nil
		})
	f.pending.EXPECT().Hash().Return("0xfeed").AnyTimes()
	f.pending.EXPECT().Wait(gomock.Any()).Return(&chain.Receipt{Success: true, GasUsed: 1, EffectiveGasPrice: big.NewInt(1)}, nil)

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultRedeemGas, submitted.GasLimit)
}

func TestHandle_RevertedReceiptCompletes(t *testing.T) {
	f := newFixture(t)
	f.expectPriced(gwei(1_000_000))
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(2), nil)
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).Return(f.pending, nil)
	f.pending.EXPECT().Hash().Return("0xdead").AnyTimes()
	f.pending.EXPECT().Wait(gomock.Any()).Return(&chain.Receipt{Success: false, GasUsed: 21_000, EffectiveGasPrice: gwei(1)}, nil)

	outcome, err := f.claimer.Claim(context.Background(), model.ClaimJob{SwapID: testSwapID, Secret: testSecret, Network: model.NetworkOptimismSepolia})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome.Kind)
	assert.Equal(t, "0xdead", outcome.TxHash)

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TxStatusFailed, rows[0].Status)
}

func TestHandle_TransientErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.client.EXPECT().IsClaimable(gomock.Any(), testSwapID).Return(false, errors.New("503 service unavailable"))

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.Error(t, err)
	assert.False(t, retry.IsMarkedTerminal(err))
	assert.Equal(t, FailureTransient, Classify(err))
}

func TestHandle_MalformedJobsAreTerminal(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `garbage`},
		{"missing secret", `{"swapId":"0x01","network":"OPTIMISM_SEPOLIA"}`},
		{"unknown network", `{"swapId":"0x01","secret":"1","network":"SOLANA"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.claimer.Handle(context.Background(), &queue.Job{ID: "swap:0x01", Payload: []byte(tc.payload)})
			require.Error(t, err)
			assert.True(t, retry.IsMarkedTerminal(err))
		})
	}
}

func TestHandle_RecordCreateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	txs := storemocks.NewMockTransactionRepository(ctrl)
	f.claimer.txs = txs

	f.expectPriced(gwei(1_000_000))
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(4), nil)
	txs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	assert.ErrorContains(t, err, "create transaction record: db down")
}

func TestHandle_SubmitFailureRecordsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	txs := storemocks.NewMockTransactionRepository(ctrl)
	f.claimer.txs = txs
	rowID := uuid.New()

	f.expectPriced(gwei(1_000_000))
	f.client.EXPECT().PendingNonce(gomock.Any(), testWallet).Return(uint64(4), nil)
	f.client.EXPECT().SubmitRedeem(gomock.Any(), testSwapID, testSecret, gomock.Any()).Return(nil, errors.New("insufficient funds for gas"))

	gomock.InOrder(
		txs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tx *model.Transaction) error {
			assert.Equal(t, model.TxStatusPending, tx.Status)
			assert.Equal(t, new(big.Int).Mul(big.NewInt(60_000), gwei(12)).String(), tx.Fee)
			tx.ID = rowID
			return nil
		}),
		txs.EXPECT().Update(gomock.Any(), rowID, gomock.Any()).DoAndReturn(func(_ context.Context, _ uuid.UUID, patch model.TransactionPatch) error {
			require.NotNil(t, patch.Error)
			assert.Equal(t, "submit redeem: insufficient funds for gas", *patch.Error)
			assert.Nil(t, patch.Status)
			return nil
		}),
	)

	_, err := f.claimer.Handle(context.Background(), claimJob(t))
	require.Error(t, err)
}

func TestOnFinalFailure_SendsAlert(t *testing.T) {
	f := newFixture(t)
	job := claimJob(t)
	job.Attempts = 3

	f.claimer.OnFinalFailure(context.Background(), job, errors.New("rpc unavailable"))

	require.Len(t, f.alerts.alerts, 1)
	a := f.alerts.alerts[0]
	assert.Equal(t, alert.AlertTypeClaimFailed, a.Type)
	assert.Equal(t, "OPTIMISM_SEPOLIA", a.Network)
	assert.Equal(t, testSwapID, a.Fields["swap_id"])
	assert.Equal(t, "3", a.Fields["attempts"])
	assert.Equal(t, "rpc unavailable", a.Message)
}

func TestOnFinalFailure_UndecodablePayloadUsesJobID(t *testing.T) {
	f := newFixture(t)
	job := &queue.Job{ID: model.ClaimJobID(testSwapID), Name: queue.JobProcessReward, Payload: []byte("{not json"), Attempts: 5}

	f.claimer.OnFinalFailure(context.Background(), job, nil)

	require.Len(t, f.alerts.alerts, 1)
	a := f.alerts.alerts[0]
	assert.Equal(t, testSwapID, a.Fields[alert.SubjectField])
	assert.Equal(t, job.ID, a.Fields["job_id"])
	assert.Equal(t, "attempts exhausted", a.Message)
}

func TestWorker_RoutesClaimOutcomes(t *testing.T) {
	f := newFixture(t)
	f.expectPriced(big.NewInt(1))

	clock := testNow
	q := queue.NewMemoryQueue(queue.EligibleRewardQueue).WithClock(func() time.Time { return clock })
	job := claimJob(t)
	_, err := q.Enqueue(context.Background(), job.Name, job.Payload, queue.EnqueueOptions{ID: job.ID})
	require.NoError(t, err)

	w := queue.NewWorker(q, f.claimer.Handle, queue.WorkerConfig{}, testLogger())
	processed, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	stored, err := q.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, queue.StateDelayed, stored.State)
	assert.Equal(t, testNow.Add(DefaultDeferInterval), stored.RunAt)
	assert.Equal(t, 0, stored.Attempts, "deferral keeps the attempt budget")
}
