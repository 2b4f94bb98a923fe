// Package retry marks job errors as terminal and classifies RPC failures as
// endpoint faults or caller faults.
package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/emperorhan/htlc-reward-claimer/internal/circuitbreaker"
	"github.com/ethereum/go-ethereum/rpc"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

func transient(reason string) Decision { return Decision{Class: ClassTransient, Reason: reason} }

func terminal(reason string) Decision { return Decision{Class: ClassTerminal, Reason: reason} }

type markedError struct {
	error
	decision Decision
}

func (e *markedError) Unwrap() error { return e.error }

func mark(err error, d Decision) error {
	if err == nil {
		return nil
	}
	return &markedError{error: err, decision: d}
}

// Transient forces err to be treated as an endpoint fault.
func Transient(err error) error { return mark(err, transient("explicit_transient")) }

// Terminal marks err so queue workers drop the job without retrying.
func Terminal(err error) error { return mark(err, terminal("explicit_terminal")) }

// IsMarkedTerminal reports whether err was explicitly wrapped by Terminal.
func IsMarkedTerminal(err error) bool {
	var m *markedError
	return errors.As(err, &m) && m.decision.Class == ClassTerminal
}

// rule returns a decision when it recognises err.
type rule func(err error) (Decision, bool)

var rules = []rule{
	markedRule,
	contextRule,
	breakerRule,
	netTimeoutRule,
	httpStatusRule,
	jsonRPCRule,
	messageRule,
}

// Classify walks the rules in order; unrecognised errors are terminal.
func Classify(err error) Decision {
	if err == nil {
		return terminal("nil_error")
	}
	for _, r := range rules {
		if d, ok := r(err); ok {
			return d
		}
	}
	return terminal("unknown_terminal_default")
}

func markedRule(err error) (Decision, bool) {
	var m *markedError
	if errors.As(err, &m) {
		return m.decision, true
	}
	return Decision{}, false
}

func contextRule(err error) (Decision, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return terminal("context_canceled"), true
	case errors.Is(err, context.DeadlineExceeded):
		return transient("context_deadline_exceeded"), true
	}
	return Decision{}, false
}

func breakerRule(err error) (Decision, bool) {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return transient("circuit_open"), true
	}
	return Decision{}, false
}

func netTimeoutRule(err error) (Decision, bool) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return transient("net_timeout"), true
	}
	return Decision{}, false
}

func httpStatusRule(err error) (Decision, bool) {
	var httpErr rpc.HTTPError
	if !errors.As(err, &httpErr) {
		return Decision{}, false
	}
	if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
		return transient("http_server_transient"), true
	}
	return terminal("http_client_terminal"), true
}

// jsonRPCRule treats geth's -32000 and revert code 3 as caller faults; the
// rest of the server range is the node's problem.
func jsonRPCRule(err error) (Decision, bool) {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return Decision{}, false
	}
	switch code := rpcErr.ErrorCode(); {
	case code == -32000 || code == 3:
		return terminal("jsonrpc_execution_error"), true
	case code == -32603 || code == -32005:
		return transient("jsonrpc_server_transient"), true
	case code <= -32001 && code >= -32099:
		return transient("jsonrpc_server_range"), true
	default:
		return terminal("jsonrpc_terminal"), true
	}
}

var (
	terminalMessages = []string{
		"invalid argument", "invalid params", "method not found", "parse error",
		"execution reverted", "insufficient funds", "nonce too low", "nonce too high",
	}
	transientMessages = []string{
		"timeout", "timed out", "temporar", "unavailable",
		"connection reset", "connection refused", "broken pipe", "econnreset", "econnrefused",
		"too many requests", "rate limit", "429", "502", "503", "504",
		"server closed idle connection",
	}
)

// messageRule covers errors that reach us only as text, e.g. from proxies.
func messageRule(err error) (Decision, bool) {
	msg := strings.ToLower(err.Error())
	for _, token := range terminalMessages {
		if strings.Contains(msg, token) {
			return terminal("message_terminal"), true
		}
	}
	for _, token := range transientMessages {
		if strings.Contains(msg, token) {
			return transient("message_transient"), true
		}
	}
	return Decision{}, false
}
