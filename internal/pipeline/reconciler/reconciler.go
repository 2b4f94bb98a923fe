// Package reconciler folds HTLC events into one swap row per HTLC id,
// independent of arrival order and duplicate delivery.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/event"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	actionUpserted        = "upserted"
	actionInsertedMinimal = "inserted_minimal"
	actionSecretSet       = "secret_set"
	actionDeleted         = "deleted"
	actionNoop            = "noop"
)

// Reconciler applies decoded HTLC events to the swap store and claim queue.
type Reconciler struct {
	swaps  store.SwapRepository
	claims queue.Producer
	logger *slog.Logger
}

// New returns a Reconciler writing to swaps and claims.
func New(swaps store.SwapRepository, claims queue.Producer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		swaps:  swaps,
		claims: claims,
		logger: logger.With("component", "reconciler"),
	}
}

// Handle is the events-queue handler. Undecodable payloads are dropped.
func (r *Reconciler) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	ev, err := event.Unmarshal(job.Payload)
	if err != nil {
		return queue.Result{}, retry.Terminal(fmt.Errorf("job %s: %w", job.ID, err))
	}
	if err := r.Apply(ctx, ev); err != nil {
		return queue.Result{}, err
	}
	return queue.Done(), nil
}

// Apply applies one event to the swap store.
func (r *Reconciler) Apply(ctx context.Context, ev event.Event) (err error) {
	ctx, span := tracing.Start(ctx, "reconciler", "apply",
		attribute.String("kind", string(ev.Kind())),
		attribute.String("swap_id", ev.SwapID()),
		attribute.String("network", ev.Source().Network.String()),
	)
	defer func() { tracing.End(span, err) }()

	var action string
	switch e := ev.(type) {
	case event.Locked:
		action, err = r.applyLocked(ctx, e)
	case event.Redeemed:
		action, err = r.applyRedeemed(ctx, e, true)
	case event.Refunded:
		action, err = r.applyRefunded(ctx, e)
	default:
		return retry.Terminal(fmt.Errorf("%w: %T", event.ErrUnknownKind, ev))
	}
	if err != nil {
		return fmt.Errorf("apply %s %s: %w", ev.Kind(), ev.SwapID(), err)
	}

	metrics.ReconcilerTransitions.WithLabelValues(string(ev.Kind()), action).Inc()
	r.logger.Debug("event applied",
		"kind", ev.Kind(),
		"swap_id", ev.SwapID(),
		"network", ev.Source().Network,
		"action", action,
	)
	return nil
}

// applyLocked writes the lock columns. An existing row keeps its status and
// secret.
func (r *Reconciler) applyLocked(ctx context.Context, e event.Locked) (string, error) {
	if err := r.swaps.Upsert(ctx, swapFromLocked(e)); err != nil {
		return "", err
	}
	return actionUpserted, nil
}

func (r *Reconciler) applyRedeemed(ctx context.Context, e event.Redeemed, retryOnConflict bool) (string, error) {
	swap, err := r.swaps.FindByID(ctx, e.ID)
	if err != nil {
		return "", err
	}

	if swap == nil {
		secret := e.Secret
		err := r.swaps.Insert(ctx, &model.Swap{
			ID:     e.ID,
			Secret: &secret,
			Status: model.SwapStatusRedeemed,
		})
		if errors.Is(err, store.ErrDuplicateKey) && retryOnConflict {
			// A concurrent lock created the row first.
			return r.applyRedeemed(ctx, e, false)
		}
		if err != nil {
			return "", err
		}
		return actionInsertedMinimal, nil
	}

	if !swap.HasSecret() {
		secret := e.Secret
		status := model.SwapStatusRedeemed
		if err := r.swaps.Update(ctx, e.ID, model.SwapPatch{Secret: &secret, Status: &status}); err != nil {
			return "", err
		}
		return actionSecretSet, nil
	}

	if swap.DstNetwork != nil && e.Network == *swap.DstNetwork {
		// Redeemed on the destination: the reward is gone.
		if err := r.swaps.Delete(ctx, e.ID); err != nil {
			return "", err
		}
		if err := r.cancelClaim(ctx, e.ID); err != nil {
			return "", err
		}
		return actionDeleted, nil
	}
	return actionNoop, nil
}

func (r *Reconciler) applyRefunded(ctx context.Context, e event.Refunded) (string, error) {
	if err := r.swaps.Delete(ctx, e.ID); err != nil {
		return "", err
	}
	if err := r.cancelClaim(ctx, e.ID); err != nil {
		return "", err
	}
	return actionDeleted, nil
}

// cancelClaim drops a scheduled claim. A claim already running is left to
// fail its claimability check.
func (r *Reconciler) cancelClaim(ctx context.Context, swapID string) error {
	jobID := model.ClaimJobID(swapID)
	removed, err := r.claims.RemoveIfExists(ctx, jobID)
	if err != nil {
		return fmt.Errorf("cancel claim job %s: %w", jobID, err)
	}
	if removed {
		metrics.ReconcilerJobsCancelled.Inc()
		r.logger.Info("claim job cancelled", "swap_id", swapID, "job_id", jobID)
	}
	return nil
}

func swapFromLocked(e event.Locked) *model.Swap {
	srcNetwork := e.Network
	dstNetwork := e.DstNetwork
	srcAsset := e.SrcAsset
	dstAsset := e.DstAsset
	hashlock := e.Hashlock
	timelock := e.Timelock
	reward := e.Reward
	rewardTimelock := e.RewardTimelock
	return &model.Swap{
		ID:             e.ID,
		SrcNetwork:     &srcNetwork,
		SrcAsset:       &srcAsset,
		DstNetwork:     &dstNetwork,
		DstAsset:       &dstAsset,
		Hashlock:       &hashlock,
		Timelock:       &timelock,
		Reward:         &reward,
		RewardTimelock: &rewardTimelock,
		Status:         model.SwapStatusInProgress,
	}
}
