package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/event"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/memory"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const swapID = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lockedEvent() event.Locked {
	return event.Locked{
		Origin:         event.Origin{Network: model.NetworkEthereumSepolia, BlockNumber: 10, TxHash: "0x1"},
		ID:             swapID,
		Hashlock:       "0xbeef",
		DstNetwork:     model.NetworkOptimismSepolia,
		DstAsset:       "ETH",
		SrcAsset:       "ETH",
		Amount:         "1000",
		Reward:         "50",
		RewardTimelock: 1_700_000_100,
		Timelock:       1_700_003_600,
	}
}

func redeemedOn(network model.Network) event.Redeemed {
	return event.Redeemed{
		Origin: event.Origin{Network: network, BlockNumber: 12, TxHash: "0x2"},
		ID:     swapID,
		Secret: "42",
	}
}

func refunded() event.Refunded {
	return event.Refunded{Origin: event.Origin{Network: model.NetworkEthereumSepolia}, ID: swapID}
}

type fixture struct {
	swaps  *memory.SwapRepo
	claims *queue.MemoryQueue
	rec    *Reconciler
}

func newFixture() *fixture {
	f := &fixture{
		swaps:  memory.NewSwapRepo(),
		claims: queue.NewMemoryQueue(queue.EligibleRewardQueue),
	}
	f.rec = New(f.swaps, f.claims, testLogger())
	return f
}

func (f *fixture) apply(t *testing.T, events ...event.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, f.rec.Apply(context.Background(), ev))
	}
}

func (f *fixture) swap(t *testing.T) *model.Swap {
	t.Helper()
	s, err := f.swaps.FindByID(context.Background(), swapID)
	require.NoError(t, err)
	return s
}

func (f *fixture) scheduleClaim(t *testing.T) {
	t.Helper()
	_, err := f.claims.Enqueue(context.Background(), queue.JobProcessReward, nil,
		queue.EnqueueOptions{ID: model.ClaimJobID(swapID), Delay: time.Minute})
	require.NoError(t, err)
}

func TestApply_LockOnAbsentInsertsInProgress(t *testing.T) {
	f := newFixture()
	f.apply(t, lockedEvent())

	s := f.swap(t)
	require.NotNil(t, s)
	assert.Equal(t, model.SwapStatusInProgress, s.Status)
	assert.Equal(t, model.NetworkEthereumSepolia, *s.SrcNetwork)
	assert.Equal(t, model.NetworkOptimismSepolia, *s.DstNetwork)
	assert.Equal(t, "50", *s.Reward)
	assert.Equal(t, int64(1_700_000_100), *s.RewardTimelock)
	assert.Nil(t, s.Secret)
}

func TestApply_RedeemOnAbsentInsertsMinimalRow(t *testing.T) {
	f := newFixture()
	f.apply(t, redeemedOn(model.NetworkEthereumSepolia))

	s := f.swap(t)
	require.NotNil(t, s)
	assert.Equal(t, model.SwapStatusRedeemed, s.Status)
	assert.Equal(t, "42", *s.Secret)
	assert.Nil(t, s.DstNetwork)
}

func TestApply_RefundOnAbsentIsNoop(t *testing.T) {
	f := newFixture()
	f.apply(t, refunded())
	assert.Nil(t, f.swap(t))
}

func TestApply_RedeemSetsSecret(t *testing.T) {
	f := newFixture()
	f.apply(t, lockedEvent(), redeemedOn(model.NetworkEthereumSepolia))

	s := f.swap(t)
	assert.Equal(t, model.SwapStatusRedeemed, s.Status)
	assert.Equal(t, "42", *s.Secret)
}

func TestApply_RedeemOnDestinationDeletesAndCancels(t *testing.T) {
	f := newFixture()
	f.apply(t, lockedEvent(), redeemedOn(model.NetworkEthereumSepolia))
	f.scheduleClaim(t)

	f.apply(t, redeemedOn(model.NetworkOptimismSepolia))

	assert.Nil(t, f.swap(t))
	assert.Equal(t, 0, f.claims.Len())
}

func TestApply_RepeatedSourceRedeemIsNoop(t *testing.T) {
	f := newFixture()
	f.apply(t, lockedEvent(), redeemedOn(model.NetworkEthereumSepolia))
	before := f.swap(t)

	f.apply(t, redeemedOn(model.NetworkEthereumSepolia))
	after := f.swap(t)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, *before.Secret, *after.Secret)
}

func TestApply_RefundDeletesAndCancels(t *testing.T) {
	for _, status := range []string{"in_progress", "redeemed"} {
		t.Run(status, func(t *testing.T) {
			f := newFixture()
			f.apply(t, lockedEvent())
			if status == "redeemed" {
				f.apply(t, redeemedOn(model.NetworkEthereumSepolia))
			}
			f.scheduleClaim(t)

			f.apply(t, refunded())
			assert.Nil(t, f.swap(t))
			assert.Equal(t, 0, f.claims.Len())
		})
	}
}

func TestApply_ActiveClaimIsNotCancelled(t *testing.T) {
	f := newFixture()
	f.apply(t, lockedEvent(), redeemedOn(model.NetworkEthereumSepolia))
	_, err := f.claims.Enqueue(context.Background(), queue.JobProcessReward, nil, queue.EnqueueOptions{ID: model.ClaimJobID(swapID)})
	require.NoError(t, err)
	_, err = f.claims.Reserve(context.Background(), 0)
	require.NoError(t, err)

	f.apply(t, refunded())
	assert.Nil(t, f.swap(t))
	assert.Equal(t, 1, f.claims.Len(), "running claim fails through its claimability check")
}

func TestApply_LockAfterRedeemMergesColumnsKeepsStatus(t *testing.T) {
	f := newFixture()
	f.apply(t, redeemedOn(model.NetworkEthereumSepolia), lockedEvent())

	s := f.swap(t)
	assert.Equal(t, model.SwapStatusRedeemed, s.Status)
	assert.Equal(t, "42", *s.Secret)
	assert.Equal(t, model.NetworkOptimismSepolia, *s.DstNetwork)
	assert.Equal(t, "0xbeef", *s.Hashlock)
}

func TestApply_OrderIndependentAndIdempotent(t *testing.T) {
	lock := lockedEvent()
	redeem := redeemedOn(model.NetworkEthereumSepolia)

	orders := [][]event.Event{
		{lock, redeem},
		{redeem, lock},
		{lock, lock, redeem},
		{redeem, redeem, lock, lock},
		{lock, redeem, lock, redeem},
	}

	for i, order := range orders {
		t.Run(fmt.Sprintf("order_%d", i), func(t *testing.T) {
			f := newFixture()
			f.apply(t, order...)

			s := f.swap(t)
			require.NotNil(t, s)
			assert.Equal(t, model.SwapStatusRedeemed, s.Status)
			assert.Equal(t, "42", *s.Secret)
			assert.Equal(t, model.NetworkEthereumSepolia, *s.SrcNetwork)
			assert.Equal(t, model.NetworkOptimismSepolia, *s.DstNetwork)
			assert.Equal(t, "50", *s.Reward)
			assert.Equal(t, int64(1_700_000_100), *s.RewardTimelock)
		})
	}
}

func TestApply_DuplicateInsertReappliesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	swaps := mocks.NewMockSwapRepository(ctrl)
	rec := New(swaps, queue.NewMemoryQueue(queue.EligibleRewardQueue), testLogger())

	dst := model.NetworkOptimismSepolia
	lockedRow := &model.Swap{ID: swapID, DstNetwork: &dst, Status: model.SwapStatusInProgress}
	secret := "42"
	redeemed := model.SwapStatusRedeemed

	gomock.InOrder(
		swaps.EXPECT().FindByID(gomock.Any(), swapID).Return(nil, nil),
		swaps.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(fmt.Errorf("insert swap: %w", store.ErrDuplicateKey)),
		swaps.EXPECT().FindByID(gomock.Any(), swapID).Return(lockedRow, nil),
		swaps.EXPECT().Update(gomock.Any(), swapID, model.SwapPatch{Secret: &secret, Status: &redeemed}).Return(nil),
	)

	require.NoError(t, rec.Apply(context.Background(), redeemedOn(model.NetworkEthereumSepolia)))
}

func TestApply_SecondDuplicateInsertFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	swaps := mocks.NewMockSwapRepository(ctrl)
	rec := New(swaps, queue.NewMemoryQueue(queue.EligibleRewardQueue), testLogger())

	swaps.EXPECT().FindByID(gomock.Any(), swapID).Return(nil, nil).Times(2)
	swaps.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(store.ErrDuplicateKey).Times(2)

	err := rec.Apply(context.Background(), redeemedOn(model.NetworkEthereumSepolia))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestHandle(t *testing.T) {
	f := newFixture()
	payload, err := event.Marshal(lockedEvent())
	require.NoError(t, err)

	res, err := f.rec.Handle(context.Background(), &queue.Job{ID: "evt:1", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, queue.DispositionComplete, res.Disposition)
	assert.NotNil(t, f.swap(t))

	_, err = f.rec.Handle(context.Background(), &queue.Job{ID: "evt:2", Payload: []byte(`{"kind":"Bogus"}`)})
	require.Error(t, err)
	assert.True(t, retry.IsMarkedTerminal(err))
}
