package evm

import (
	"fmt"
	"math/big"

	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/event"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Decoder turns Train contract logs observed on one network into events.
type Decoder struct {
	network model.Network
}

var _ chain.LogDecoder = (*Decoder)(nil)

func NewDecoder(network model.Network) *Decoder {
	return &Decoder{network: network}
}

func (d *Decoder) Decode(log chain.RawLog) (event.Event, error) {
	if len(log.Topics) == 0 {
		return nil, chain.ErrUnknownEvent
	}
	topics := make([]common.Hash, len(log.Topics))
	for i, t := range log.Topics {
		topics[i] = common.HexToHash(t)
	}

	ev, err := trainABI.EventByID(topics[0])
	if err != nil {
		return nil, chain.ErrUnknownEvent
	}

	fields := make(map[string]any)
	if err := ev.Inputs.UnpackIntoMap(fields, log.Data); err != nil {
		return nil, fmt.Errorf("unpack %s data: %w", ev.Name, err)
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, topics[1:]); err != nil {
		return nil, fmt.Errorf("unpack %s topics: %w", ev.Name, err)
	}

	origin := event.Origin{
		Network:     d.network,
		BlockNumber: log.BlockNumber,
		TxHash:      model.NormalizeAddress(log.TxHash),
		LogIndex:    log.Index,
	}

	switch ev.Name {
	case eventLocked:
		return event.Locked{
			Origin:         origin,
			ID:             bytes32Field(fields, "Id"),
			Hashlock:       bytes32Field(fields, "hashlock"),
			DstNetwork:     model.NormalizeNetwork(stringField(fields, "dstChain")),
			DstAddress:     stringField(fields, "dstAddress"),
			DstAsset:       stringField(fields, "dstAsset"),
			Sender:         addressField(fields, "sender"),
			SrcReceiver:    addressField(fields, "srcReceiver"),
			SrcAsset:       stringField(fields, "srcAsset"),
			Amount:         bigField(fields, "amount").String(),
			Reward:         bigField(fields, "reward").String(),
			RewardTimelock: bigField(fields, "rewardTimelock").Int64(),
			Timelock:       bigField(fields, "timelock").Int64(),
		}, nil
	case eventRedeemed:
		return event.Redeemed{
			Origin:        origin,
			ID:            bytes32Field(fields, "Id"),
			RedeemAddress: addressField(fields, "redeemAddress"),
			Secret:        bigField(fields, "secret").String(),
			Hashlock:      bytes32Field(fields, "hashlock"),
		}, nil
	case eventRefunded:
		return event.Refunded{
			Origin: origin,
			ID:     bytes32Field(fields, "Id"),
		}, nil
	default:
		return nil, chain.ErrUnknownEvent
	}
}

func bytes32Field(fields map[string]any, name string) string {
	v, _ := fields[name].([32]byte)
	return hexutil.Encode(v[:])
}

func stringField(fields map[string]any, name string) string {
	v, _ := fields[name].(string)
	return v
}

func addressField(fields map[string]any, name string) string {
	v, _ := fields[name].(common.Address)
	return model.NormalizeAddress(v.Hex())
}

func bigField(fields map[string]any, name string) *big.Int {
	if v, ok := fields[name].(*big.Int); ok && v != nil {
		return v
	}
	return new(big.Int)
}
