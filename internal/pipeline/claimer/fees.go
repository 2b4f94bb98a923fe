package claimer

import (
	"errors"
	"math/big"

	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
)

const (
	DefaultRedeemGas uint64 = 72000

	// 2 gwei
	DefaultMinPriorityFeeWei int64 = 2_000_000_000

	legacyBufferPercent = 120
)

var errNoGasPrice = errors.New("node returned no gas price")

// FeePlan is the priced transaction and its worst-case fee.
type FeePlan struct {
	Legacy               bool
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	EstimatedFee         *big.Int
}

// TxOptions turns the plan into submission options.
func (p FeePlan) TxOptions(nonce, gasLimit uint64) chain.TxOptions {
	opts := chain.TxOptions{Nonce: nonce, GasLimit: gasLimit}
	if p.Legacy {
		opts.GasPrice = p.GasPrice
	} else {
		opts.MaxFeePerGas = p.MaxFeePerGas
		opts.MaxPriorityFeePerGas = p.MaxPriorityFeePerGas
	}
	return opts
}

// PlanFees prices a redeem of gasLimit gas.
//
// Legacy networks pay the suggested gas price plus 20%. EIP-1559 networks
// pay a priority fee of at least minPriority and cap the fee at twice the
// base fee plus that priority.
func PlanFees(fees chain.FeeSuggestion, gasLimit uint64, minPriority *big.Int) (FeePlan, error) {
	gas := new(big.Int).SetUint64(gasLimit)

	if fees.IsLegacy() || fees.BaseFee == nil {
		if fees.GasPrice == nil {
			return FeePlan{}, errNoGasPrice
		}
		price := new(big.Int).Mul(fees.GasPrice, big.NewInt(legacyBufferPercent))
		price.Quo(price, big.NewInt(100))
		return FeePlan{
			Legacy:       true,
			GasPrice:     price,
			EstimatedFee: new(big.Int).Mul(gas, price),
		}, nil
	}

	priority := new(big.Int).Set(fees.MaxPriorityFeePerGas)
	if minPriority != nil && priority.Cmp(minPriority) < 0 {
		priority.Set(minPriority)
	}
	maxFee := new(big.Int).Mul(fees.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, priority)

	return FeePlan{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: priority,
		EstimatedFee:         new(big.Int).Mul(gas, maxFee),
	}, nil
}
