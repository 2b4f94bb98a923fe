package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
)

// Kind names the HTLC contract event a variant was decoded from.
type Kind string

const (
	KindLocked   Kind = "TokenLocked"
	KindRedeemed Kind = "TokenRedeemed"
	KindRefunded Kind = "TokenRefunded"
)

// ErrUnknownKind is returned when an envelope carries a kind outside the
// closed variant set.
var ErrUnknownKind = errors.New("unknown htlc event kind")

// Origin identifies where an event was observed.
type Origin struct {
	Network     model.Network `json:"network"`
	BlockNumber uint64        `json:"blockNumber"`
	TxHash      string        `json:"txHash"`
	LogIndex    uint          `json:"logIndex"`
}

// Event is the closed set of HTLC events: Locked, Redeemed and Refunded.
// Consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	SwapID() string
	Source() Origin
	sealed()
}

// Locked is emitted when a reward-bearing HTLC is created on Origin.Network.
type Locked struct {
	Origin
	ID             string        `json:"id"`
	Hashlock       string        `json:"hashlock"`
	DstNetwork     model.Network `json:"dstNetwork"`
	DstAddress     string        `json:"dstAddress"`
	DstAsset       string        `json:"dstAsset"`
	Sender         string        `json:"sender"`
	SrcReceiver    string        `json:"srcReceiver"`
	SrcAsset       string        `json:"srcAsset"`
	Amount         string        `json:"amount"`
	Reward         string        `json:"reward"`
	RewardTimelock int64         `json:"rewardTimelock"`
	Timelock       int64         `json:"timelock"`
}

// Redeemed is emitted when the secret is revealed on Origin.Network.
type Redeemed struct {
	Origin
	ID            string `json:"id"`
	RedeemAddress string `json:"redeemAddress"`
	Secret        string `json:"secret"`
	Hashlock      string `json:"hashlock"`
}

// Refunded is emitted when the sender reclaims funds after the timelock.
type Refunded struct {
	Origin
	ID string `json:"id"`
}

func (Locked) Kind() Kind   { return KindLocked }
func (Redeemed) Kind() Kind { return KindRedeemed }
func (Refunded) Kind() Kind { return KindRefunded }

func (e Locked) SwapID() string   { return e.ID }
func (e Redeemed) SwapID() string { return e.ID }
func (e Refunded) SwapID() string { return e.ID }

func (e Locked) Source() Origin   { return e.Origin }
func (e Redeemed) Source() Origin { return e.Origin }
func (e Refunded) Source() Origin { return e.Origin }

func (Locked) sealed()   {}
func (Redeemed) sealed() {}
func (Refunded) sealed() {}

// HasReward reports whether the lock carries a positive reward. Locks
// without a reward are of no interest to the claimer.
func (e Locked) HasReward() bool {
	reward, ok := new(big.Int).SetString(e.Reward, 10)
	return ok && reward.Sign() > 0
}

// Envelope is the queue wire format of an Event.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes an event into its envelope.
func Marshal(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: e.Kind(), Payload: payload})
}

// Unmarshal decodes an envelope back into its concrete variant.
func Unmarshal(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Kind {
	case KindLocked:
		var e Locked
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Kind, err)
		}
		return e, nil
	case KindRedeemed:
		var e Redeemed
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Kind, err)
		}
		return e, nil
	case KindRefunded:
		var e Refunded
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Kind, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
