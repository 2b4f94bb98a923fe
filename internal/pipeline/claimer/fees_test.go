package claimer

import (
	"math/big"
	"testing"

	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestPlanFees(t *testing.T) {
	minTip := gwei(2)

	tests := []struct {
		name       string
		fees       chain.FeeSuggestion
		gasLimit   uint64
		wantLegacy bool
		wantPrice  *big.Int
		wantMaxFee *big.Int
		wantTip    *big.Int
		wantEstFee *big.Int
	}{
		{
			name:       "legacy adds twenty percent",
			fees:       chain.FeeSuggestion{GasPrice: gwei(10)},
			gasLimit:   100_000,
			wantLegacy: true,
			wantPrice:  gwei(12),
			wantEstFee: new(big.Int).Mul(big.NewInt(100_000), gwei(12)),
		},
		{
			name:       "missing priority fee is legacy",
			fees:       chain.FeeSuggestion{GasPrice: gwei(5), MaxFeePerGas: gwei(9), BaseFee: gwei(3)},
			gasLimit:   72_000,
			wantLegacy: true,
			wantPrice:  gwei(6),
			wantEstFee: new(big.Int).Mul(big.NewInt(72_000), gwei(6)),
		},
		{
			name:       "dynamic fee raises tip to minimum",
			fees:       chain.FeeSuggestion{GasPrice: gwei(5), MaxFeePerGas: gwei(9), MaxPriorityFeePerGas: gwei(1), BaseFee: gwei(3)},
			gasLimit:   50_000,
			wantMaxFee: gwei(8),
			wantTip:    gwei(2),
			wantEstFee: new(big.Int).Mul(big.NewInt(50_000), gwei(8)),
		},
		{
			name:       "dynamic fee keeps higher tip",
			fees:       chain.FeeSuggestion{MaxFeePerGas: gwei(30), MaxPriorityFeePerGas: gwei(5), BaseFee: gwei(10)},
			gasLimit:   50_000,
			wantMaxFee: gwei(25),
			wantTip:    gwei(5),
			wantEstFee: new(big.Int).Mul(big.NewInt(50_000), gwei(25)),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanFees(tc.fees, tc.gasLimit, minTip)
			require.NoError(t, err)
			assert.Equal(t, tc.wantLegacy, plan.Legacy)
			assert.Equal(t, 0, tc.wantEstFee.Cmp(plan.EstimatedFee), "estimated fee %s", plan.EstimatedFee)
			if tc.wantLegacy {
				assert.Equal(t, 0, tc.wantPrice.Cmp(plan.GasPrice))
				assert.Nil(t, plan.MaxFeePerGas)
				return
			}
			assert.Equal(t, 0, tc.wantMaxFee.Cmp(plan.MaxFeePerGas))
			assert.Equal(t, 0, tc.wantTip.Cmp(plan.MaxPriorityFeePerGas))
			assert.Nil(t, plan.GasPrice)
		})
	}
}

func TestPlanFees_NoGasPrice(t *testing.T) {
	_, err := PlanFees(chain.FeeSuggestion{}, DefaultRedeemGas, nil)
	assert.ErrorIs(t, err, errNoGasPrice)
}

func TestFeePlan_TxOptions(t *testing.T) {
	legacy := FeePlan{Legacy: true, GasPrice: gwei(1)}.TxOptions(7, 72_000)
	assert.False(t, legacy.IsDynamicFee())
	assert.Equal(t, uint64(7), legacy.Nonce)
	assert.Equal(t, uint64(72_000), legacy.GasLimit)

	dynamic := FeePlan{MaxFeePerGas: gwei(8), MaxPriorityFeePerGas: gwei(2)}.TxOptions(8, 60_000)
	assert.True(t, dynamic.IsDynamicFee())
	assert.Nil(t, dynamic.GasPrice)
}
