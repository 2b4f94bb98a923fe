package evm

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

//go:embed train_abi.json
var trainABIJSON string

// The subset of the Train HTLC contract the claimer touches.
var trainABI = mustParseABI(trainABIJSON)

const (
	eventLocked   = "TokenLocked"
	eventRedeemed = "TokenRedeemed"
	eventRefunded = "TokenRefunded"

	methodDetails = "getHTLCDetails"
	methodRedeem  = "redeem"
)

// HTLC claimed flag values returned by getHTLCDetails.
const (
	htlcRefunded uint8 = 2
	htlcRedeemed uint8 = 3
)

// htlcDetails mirrors the Train.HTLC tuple.
type htlcDetails struct {
	Amount      *big.Int
	Hashlock    [32]byte
	Secret      *big.Int
	Sender      common.Address
	SrcReceiver common.Address
	Timelock    *big.Int
	Claimed     uint8
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse train abi: %v", err))
	}
	return parsed
}

// eventTopics is the topic0 filter matching every consumed event.
func eventTopics() []common.Hash {
	return []common.Hash{
		trainABI.Events[eventLocked].ID,
		trainABI.Events[eventRedeemed].ID,
		trainABI.Events[eventRefunded].ID,
	}
}

func parseSwapID(id string) ([32]byte, error) {
	var out [32]byte
	raw, err := hexutil.Decode(strings.TrimSpace(id))
	if err != nil || len(raw) != 32 {
		return out, retry.Terminal(fmt.Errorf("invalid swap id %q", id))
	}
	copy(out[:], raw)
	return out, nil
}

func parseSecret(secret string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(secret), 10)
	if !ok || value.Sign() < 0 {
		return nil, retry.Terminal(fmt.Errorf("invalid secret"))
	}
	return value, nil
}

func packRedeem(swapID, secret string) ([]byte, error) {
	id, err := parseSwapID(swapID)
	if err != nil {
		return nil, err
	}
	value, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}
	return trainABI.Pack(methodRedeem, id, value)
}
