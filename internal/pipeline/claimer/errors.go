package claimer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
)

// FailureKind classifies why a claim attempt did not complete.
type FailureKind int

const (
	// FailureTransient covers RPC, storage and unclassified errors.
	FailureTransient FailureKind = iota
	FailureAlreadyClaimed
	FailureInsufficientBalance
	FailureNonceConflict
)

func (k FailureKind) String() string {
	switch k {
	case FailureAlreadyClaimed:
		return "already_claimed"
	case FailureInsufficientBalance:
		return "insufficient_balance"
	case FailureNonceConflict:
		return "nonce_conflict"
	default:
		return "transient"
	}
}

// AlreadyClaimedError means the HTLC was redeemed or refunded on chain.
type AlreadyClaimedError struct {
	SwapID  string
	Network model.Network
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("swap %s is already redeemed or refunded on %s", e.SwapID, e.Network)
}

// InsufficientBalanceError means the wallet cannot cover the estimated fee.
type InsufficientBalanceError struct {
	Network  model.Network
	Wallet   string
	Balance  *big.Int
	Required *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("wallet %s on %s has %s wei, estimated fee is %s wei",
		e.Wallet, e.Network, e.Balance, e.Required)
}

// Classify maps an attempt error to its failure kind.
func Classify(err error) FailureKind {
	var claimed *AlreadyClaimedError
	if errors.As(err, &claimed) {
		return FailureAlreadyClaimed
	}
	var balance *InsufficientBalanceError
	if errors.As(err, &balance) {
		return FailureInsufficientBalance
	}
	if isNonceConflict(err) {
		return FailureNonceConflict
	}
	return FailureTransient
}

func isNonceConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") || strings.Contains(msg, "nonce too high")
}
