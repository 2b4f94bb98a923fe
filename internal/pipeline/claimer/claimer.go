// Package claimer submits redeem transactions for scheduled reward claims
// and maps their business outcomes onto queue dispositions.
package claimer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/alert"
	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/nonce"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultDeferInterval = 2 * time.Minute

type OutcomeKind string

const (
	OutcomeClaimed   OutcomeKind = "claimed"
	OutcomeReverted  OutcomeKind = "reverted"
	OutcomeAbandoned OutcomeKind = "abandoned"
	OutcomeDeferred  OutcomeKind = "deferred"
)

// Outcome is the business result of a claim attempt that did not fail.
type Outcome struct {
	Kind   OutcomeKind
	TxHash string
	Until  time.Time // set for OutcomeDeferred
	Reason string
}

// Nonces hands out and invalidates wallet nonces.
type Nonces interface {
	Next(ctx context.Context, network model.Network, wallet string, source nonce.Source) (uint64, error)
	Reset(ctx context.Context, network model.Network, wallet string) error
}

type Config struct {
	DeferInterval     time.Duration
	DefaultGasLimit   uint64
	MinPriorityFeeWei int64
}

// Claimer submits reward redeem transactions for eligible claim jobs.
type Claimer struct {
	clients map[model.Network]chain.Client
	nonces  Nonces
	txs     store.TransactionRepository
	alerter alert.Alerter
	cfg     Config
	minTip  *big.Int
	now     func() time.Time
	logger  *slog.Logger
}

// New returns a Claimer using one client per destination network.
func New(
	clients map[model.Network]chain.Client,
	nonces Nonces,
	txs store.TransactionRepository,
	alerter alert.Alerter,
	cfg Config,
	logger *slog.Logger,
) *Claimer {
	if cfg.DeferInterval <= 0 {
		cfg.DeferInterval = DefaultDeferInterval
	}
	if cfg.DefaultGasLimit == 0 {
		cfg.DefaultGasLimit = DefaultRedeemGas
	}
	if cfg.MinPriorityFeeWei <= 0 {
		cfg.MinPriorityFeeWei = DefaultMinPriorityFeeWei
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Claimer{
		clients: clients,
		nonces:  nonces,
		txs:     txs,
		alerter: alerter,
		cfg:     cfg,
		minTip:  big.NewInt(cfg.MinPriorityFeeWei),
		now:     time.Now,
		logger:  logger.With("component", "claimer"),
	}
}

// WithClock replaces the claimer clock; used by tests.
func (c *Claimer) WithClock(now func() time.Time) *Claimer {
	c.now = now
	return c
}

// Handle is the queue handler for claim jobs.
func (c *Claimer) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload model.ClaimJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.Result{}, retry.Terminal(fmt.Errorf("decode claim job %s: %w", job.ID, err))
	}
	if payload.SwapID == "" || payload.Secret == "" {
		return queue.Result{}, retry.Terminal(fmt.Errorf("claim job %s lacks swap id or secret", job.ID))
	}

	outcome, err := c.Claim(ctx, payload)
	if err != nil {
		return queue.Result{}, err
	}
	switch outcome.Kind {
	case OutcomeAbandoned:
		return queue.Drop(outcome.Reason), nil
	case OutcomeDeferred:
		return queue.DeferUntil(outcome.Until, outcome.Reason), nil
	default:
		return queue.Done(), nil
	}
}

// Claim runs one attempt and resolves its failure kind into an outcome.
// Errors that remain are meant to be retried.
func (c *Claimer) Claim(ctx context.Context, job model.ClaimJob) (outcome Outcome, err error) {
	network := model.NormalizeNetwork(job.Network.String())
	client, ok := c.clients[network]
	if !ok {
		return Outcome{}, retry.Terminal(fmt.Errorf("no chain client for network %q", job.Network))
	}

	ctx, span := tracing.Start(ctx, "claimer", "claim",
		attribute.String("swap_id", job.SwapID),
		attribute.String("network", network.String()),
	)
	start := time.Now()
	defer func() {
		metrics.ClaimLatency.WithLabelValues(network.String()).Observe(time.Since(start).Seconds())
		label := string(outcome.Kind)
		if err != nil {
			label = "error_" + Classify(err).String()
		}
		metrics.ClaimOutcomes.WithLabelValues(network.String(), label).Inc()
		tracing.End(span, err)
	}()

	log := c.logger.With("swap_id", job.SwapID, "network", network)
	wallet := client.WalletAddress()

	outcome, err = c.attempt(ctx, client, job, log)
	if err == nil {
		return outcome, nil
	}

	switch kind := Classify(err); kind {
	case FailureAlreadyClaimed:
		log.Info("swap no longer claimable, dropping job", "error", err)
		return Outcome{Kind: OutcomeAbandoned, Reason: kind.String()}, nil

	case FailureInsufficientBalance:
		until := c.now().Add(c.cfg.DeferInterval)
		log.Warn("insufficient balance, deferring claim", "error", err, "until", until)
		c.alertInsufficientBalance(ctx, network, wallet, err)
		return Outcome{Kind: OutcomeDeferred, Until: until, Reason: kind.String()}, nil

	case FailureNonceConflict:
		log.Warn("nonce conflict, resetting cached nonce", "error", err)
		if resetErr := c.nonces.Reset(context.WithoutCancel(ctx), network, wallet); resetErr != nil {
			log.Error("nonce reset failed", "error", resetErr)
		}
		return Outcome{}, err

	case FailureTransient:
		return Outcome{}, err

	default:
		return Outcome{}, fmt.Errorf("unhandled failure kind %d: %w", kind, err)
	}
}

func (c *Claimer) attempt(ctx context.Context, client chain.Client, job model.ClaimJob, log *slog.Logger) (Outcome, error) {
	network := client.Network()

	claimable, err := client.IsClaimable(ctx, job.SwapID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check claimable: %w", err)
	}
	if !claimable {
		return Outcome{}, &AlreadyClaimedError{SwapID: job.SwapID, Network: network}
	}

	gasLimit, err := client.EstimateGas(ctx, job.SwapID, job.Secret)
	if err != nil {
		metrics.ClaimGasEstimateFallbacks.WithLabelValues(network.String()).Inc()
		log.Error("gas estimation failed, using default gas limit", "error", err, "gas_limit", c.cfg.DefaultGasLimit)
		gasLimit = c.cfg.DefaultGasLimit
	}

	suggestion, err := client.FeeSuggestion(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("fee data: %w", err)
	}
	plan, err := PlanFees(suggestion, gasLimit, c.minTip)
	if err != nil {
		return Outcome{}, err
	}

	wallet := client.WalletAddress()
	balance, err := client.WalletBalance(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("wallet balance: %w", err)
	}
	if balance.Cmp(plan.EstimatedFee) < 0 {
		return Outcome{}, &InsufficientBalanceError{
			Network:  network,
			Wallet:   wallet,
			Balance:  balance,
			Required: plan.EstimatedFee,
		}
	}

	n, err := c.nonces.Next(ctx, network, wallet, client)
	if err != nil {
		return Outcome{}, fmt.Errorf("allocate nonce: %w", err)
	}

	record := &model.Transaction{
		SwapID:  job.SwapID,
		Network: network,
		Address: model.NormalizeAddress(wallet),
		Fee:     plan.EstimatedFee.String(),
		Status:  model.TxStatusPending,
	}
	if err := c.txs.Create(ctx, record); err != nil {
		return Outcome{}, fmt.Errorf("create transaction record: %w", err)
	}

	outcome, err := c.submit(ctx, client, job, plan.TxOptions(n, gasLimit), record, log)
	if err != nil {
		msg := err.Error()
		if updErr := c.txs.Update(context.WithoutCancel(ctx), record.ID, model.TransactionPatch{Error: &msg}); updErr != nil {
			log.Error("record transaction error failed", "tx_id", record.ID, "error", updErr)
		}
		return Outcome{}, err
	}
	return outcome, nil
}

func (c *Claimer) submit(
	ctx context.Context,
	client chain.Client,
	job model.ClaimJob,
	opts chain.TxOptions,
	record *model.Transaction,
	log *slog.Logger,
) (Outcome, error) {
	pending, err := client.SubmitRedeem(ctx, job.SwapID, job.Secret, opts)
	if err != nil {
		return Outcome{}, fmt.Errorf("submit redeem: %w", err)
	}
	hash := pending.Hash()
	log = log.With("tx_hash", hash, "nonce", opts.Nonce)
	log.Debug("redeem sent")

	if err := c.txs.Update(ctx, record.ID, model.TransactionPatch{Hash: &hash}); err != nil {
		return Outcome{}, fmt.Errorf("record transaction hash: %w", err)
	}

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("wait for %s: %w", hash, err)
	}

	status := model.TxStatusSuccess
	kind := OutcomeClaimed
	if !receipt.Success {
		status, kind = model.TxStatusFailed, OutcomeReverted
	}
	fee := receipt.Fee()
	feeText := fee.String()
	if err := c.txs.Update(ctx, record.ID, model.TransactionPatch{Status: &status, Fee: &feeText}); err != nil {
		return Outcome{}, fmt.Errorf("record transaction receipt: %w", err)
	}

	network := client.Network().String()
	if f, _ := new(big.Float).SetInt(fee).Float64(); f > 0 {
		metrics.ClaimFeeWei.WithLabelValues(network).Observe(f)
	}
	log.Info("redeem mined", "status", status, "block", receipt.BlockNumber, "fee_wei", feeText)
	return Outcome{Kind: kind, TxHash: hash}, nil
}

// OnFinalFailure is the worker hook for claim jobs out of attempts.
func (c *Claimer) OnFinalFailure(ctx context.Context, job *queue.Job, cause error) {
	var payload model.ClaimJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		c.logger.Warn("undecodable claim job payload", "job_id", job.ID, "error", err)
	}
	if payload.SwapID == "" {
		if swapID, ok := model.SwapIDFromClaimJobID(job.ID); ok {
			payload.SwapID = swapID
		} else {
			payload.SwapID = job.ID
		}
	}
	msg := "attempts exhausted"
	if cause != nil {
		msg = cause.Error()
	}

	c.logger.Error("claim job exhausted its attempts",
		"job_id", job.ID,
		"swap_id", payload.SwapID,
		"network", payload.Network,
		"attempts", job.Attempts,
		"error", cause,
	)
	err := c.alerter.Send(ctx, alert.Alert{
		Type:      alert.AlertTypeClaimFailed,
		Component: "claimer",
		Network:   payload.Network.String(),
		Title:     "Reward claim failed",
		Message:   msg,
		Fields: map[string]string{
			alert.SubjectField: payload.SwapID,
			"job_id":           job.ID,
			"attempts":         strconv.Itoa(job.Attempts),
		},
	})
	if err != nil {
		c.logger.Warn("claim failure alert not sent", "error", err)
	}
}

func (c *Claimer) alertInsufficientBalance(ctx context.Context, network model.Network, wallet string, cause error) {
	fields := map[string]string{"wallet": wallet}
	var balanceErr *InsufficientBalanceError
	if errors.As(cause, &balanceErr) {
		fields["balance_wei"] = balanceErr.Balance.String()
		fields["required_wei"] = balanceErr.Required.String()
	}
	err := c.alerter.Send(ctx, alert.Alert{
		Type:      alert.AlertTypeInsufficientBalance,
		Component: "claimer",
		Network:   network.String(),
		Title:     "Claimer wallet balance too low",
		Message:   cause.Error(),
		Fields:    fields,
	})
	if err != nil {
		c.logger.Warn("balance alert not sent", "error", err)
	}
}
