package chain

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks . Client,PendingTx,LogDecoder

import (
	"context"
	"errors"
	"math/big"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/event"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
)

// ErrUnknownEvent is returned by a LogDecoder for logs that are not one of
// the HTLC events this service consumes.
var ErrUnknownEvent = errors.New("unknown htlc log")

// Client is the per-network view of an HTLC contract and the claimer wallet.
type Client interface {
	Network() model.Network
	ChainID() int64

	// CurrentBlockHeight returns the latest block number.
	CurrentBlockHeight(ctx context.Context) (uint64, error)

	// EventLogs returns the contract's logs in the inclusive range [from, to].
	EventLogs(ctx context.Context, from, to uint64) ([]RawLog, error)

	WalletAddress() string
	WalletBalance(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)

	// IsClaimable reports whether the HTLC is neither refunded nor redeemed.
	IsClaimable(ctx context.Context, swapID string) (bool, error)
	EstimateGas(ctx context.Context, swapID, secret string) (uint64, error)
	FeeSuggestion(ctx context.Context) (FeeSuggestion, error)

	// SubmitRedeem signs and broadcasts redeem(id, secret).
	SubmitRedeem(ctx context.Context, swapID, secret string, opts TxOptions) (PendingTx, error)
}

// LogDecoder turns a raw contract log into an HTLC event.
type LogDecoder interface {
	Decode(log RawLog) (event.Event, error)
}

// PendingTx is a broadcast transaction awaiting inclusion.
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) (*Receipt, error)
}

// RawLog is a contract log as returned by eth_getLogs.
type RawLog struct {
	Address     string
	Topics      []string // 0x-prefixed 32-byte hex
	Data        []byte
	BlockNumber uint64
	TxHash      string
	Index       uint
	Removed     bool
}

// FeeSuggestion carries the node's fee data. Nil fields are not supported
// by the network.
type FeeSuggestion struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	BaseFee              *big.Int
}

// IsLegacy reports whether the network lacks EIP-1559 fee data.
func (f FeeSuggestion) IsLegacy() bool {
	return f.MaxFeePerGas == nil || f.MaxPriorityFeePerGas == nil
}

// TxOptions selects a legacy transaction when MaxFeePerGas is nil.
type TxOptions struct {
	Nonce                uint64
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

func (o TxOptions) IsDynamicFee() bool {
	return o.MaxFeePerGas != nil
}

// Receipt is the outcome of an included transaction.
type Receipt struct {
	Success           bool
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Fee returns gasUsed × effectiveGasPrice.
func (r *Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}
